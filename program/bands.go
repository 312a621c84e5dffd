package main

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/keilerkonzept/streamdash/pipeline"
)

type bandItem struct {
	Rank int
	pipeline.Band
}

func (i bandItem) Title() string {
	return fmt.Sprintf("#%-2d %-8s %s", i.Rank, i.Label, humanize.Comma(int64(i.Count)))
}
func (i bandItem) Description() string { return "" }
func (i bandItem) FilterValue() string { return i.Label }
