// Package testdata provides recorded landmark observations for tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

//go:embed observations/*.json
var observationsFS embed.FS

// Expect is the classification recorded alongside an observation. Error is
// "malformed" when the observation must be rejected.
type Expect struct {
	Label string `json:"label"`
	Hand  int    `json:"hand"`
	Error string `json:"error"`
}

// Observation is one recorded frame of landmark provider output.
type Observation struct {
	Name   string
	Raw    []byte
	Expect Expect
}

// Frame decodes the observation into a classifier input.
func (o Observation) Frame() (gesture.Frame, error) {
	var header struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.Unmarshal(o.Raw, &header); err != nil {
		return gesture.Frame{}, fmt.Errorf("observation %s: %w", o.Name, err)
	}

	hands, err := detector.DecodeHands(o.Raw)
	if err != nil {
		return gesture.Frame{}, fmt.Errorf("observation %s: %w", o.Name, err)
	}

	return gesture.Frame{Hands: hands, Width: header.Width, Height: header.Height}, nil
}

// LoadObservation loads an observation by name, without the .json extension.
func LoadObservation(name string) (Observation, error) {
	data, err := observationsFS.ReadFile("observations/" + name + ".json")
	if err != nil {
		return Observation{}, fmt.Errorf("load observation %s: %w", name, err)
	}

	var meta struct {
		Expect Expect `json:"expect"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return Observation{}, fmt.Errorf("parse observation %s: %w", name, err)
	}

	return Observation{Name: name, Raw: data, Expect: meta.Expect}, nil
}

// Observations loads every recorded observation, sorted by name.
func Observations() ([]Observation, error) {
	entries, err := observationsFS.ReadDir("observations")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	sort.Strings(names)

	observations := make([]Observation, 0, len(names))
	for _, name := range names {
		o, err := LoadObservation(name)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, nil
}
