package main

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// seedsFile is the YAML document accepted by generate --seeds-file.
//
//	reference_urls:
//	  - https://betakit.com/some-founder-exit
type seedsFile struct {
	ReferenceURLs []string `yaml:"reference_urls"`
}

func loadSeedsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read seeds file %s", path)
	}
	var f seedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "parse seeds file %s", path)
	}
	return f.ReferenceURLs, nil
}
