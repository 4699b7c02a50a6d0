package reporter

import (
	"io"
	"os"

	"github.com/runtime-release-mapper/pkg/collector"
)

type Reporter interface {
	Report(res *collector.Result) error
}

func New(format string, w io.Writer) Reporter {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "json":
		return &JSONReporter{w: w}
	default:
		return &TableReporter{w: w}
	}
}
