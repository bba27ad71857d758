package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/citeweave/internal/style"
)

func init() {
	rootCmd.AddCommand(stylesCmd)
}

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the supported citation styles",
	Args:  cobra.NoArgs,
	RunE:  runStyles,
}

// StyleInfo describes one style.
type StyleInfo struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Mode         string `json:"mode"`
	Bibliography string `json:"bibliography,omitempty"` // reference list heading
	Default      bool   `json:"default,omitempty"`
}

func runStyles(cmd *cobra.Command, args []string) error {
	var infos []StyleInfo
	for _, s := range style.NewRegistry().Styles() {
		infos = append(infos, StyleInfo{
			Name:         s.Name(),
			Title:        s.Title(),
			Mode:         s.Mode().String(),
			Bibliography: s.SectionTitle(),
			Default:      s.Name() == cfg.Style,
		})
	}

	if humanOutput {
		for _, i := range infos {
			mark := " "
			if i.Default {
				mark = "*"
			}
			outputHuman("%s %-11s %-40s %s\n", mark, i.Name, i.Title, i.Mode)
		}
		return nil
	}
	return outputJSON(infos)
}
