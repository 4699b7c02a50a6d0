package reporter

import (
	"encoding/json"
	"io"

	"github.com/runtime-release-mapper/pkg/collector"
)

type JSONReporter struct {
	w io.Writer
}

func (r *JSONReporter) Report(res *collector.Result) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")

	type output struct {
		Statistics Statistics                `json:"statistics"`
		Releases   map[string]RuntimeMapping `json:"runtime_mappings"`
	}

	doc := BuildMappingDocument(res)
	return enc.Encode(output{
		Statistics: doc.Statistics,
		Releases:   doc.RuntimeMappings,
	})
}
