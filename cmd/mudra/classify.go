package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

func newClassifyCmd() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify one landmark observation read from a JSON file or stdin",
		Long: `Classify reads one frame of landmark service output, e.g.
{"width":640,"height":480,"hands":[{"points":[{"x":0.5,"y":0.8,"z":0}, ...21 points],"handedness":"Right"}]}
and prints the classification result as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read observation: %w", err)
			}

			res, err := classify(data, width, height)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "frame width when the observation has none")
	cmd.Flags().IntVar(&height, "height", 0, "frame height when the observation has none")
	return cmd
}

// classifyOutput adds the display label to a result.
type classifyOutput struct {
	gesture.Result
	Label string `json:"label"`
}

func classify(data []byte, width, height int) (classifyOutput, error) {
	var header struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return classifyOutput{}, fmt.Errorf("parse observation: %w", err)
	}
	if header.Width == 0 {
		header.Width = width
	}
	if header.Height == 0 {
		header.Height = height
	}

	hands, err := detector.DecodeHands(data)
	if err != nil {
		return classifyOutput{}, err
	}

	res, err := gesture.Classify(gesture.Frame{Hands: hands, Width: header.Width, Height: header.Height})
	if err != nil {
		return classifyOutput{}, err
	}
	return classifyOutput{Result: res, Label: res.Label.String()}, nil
}
