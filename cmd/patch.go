package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vsariola/modsynth"
	"gopkg.in/yaml.v3"
)

// ReadPatch reads a patch from a .json or .yml file.
func ReadPatch(filename string) (modsynth.Patch, error) {
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		return modsynth.Patch{}, fmt.Errorf("could not read file %v: %v", filename, err)
	}
	return ParsePatch(inputBytes)
}

// ParsePatch parses a patch given either as JSON or as YAML.
func ParsePatch(b []byte) (modsynth.Patch, error) {
	var patch modsynth.Patch
	if errJSON := json.Unmarshal(b, &patch); errJSON != nil {
		patch = modsynth.Patch{}
		if errYaml := yaml.Unmarshal(b, &patch); errYaml != nil {
			return modsynth.Patch{}, fmt.Errorf("the patch could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return patch, nil
}
