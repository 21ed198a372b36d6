package process

import (
	"convertzh/internal/encoding"
	"convertzh/pkg/types"
)

// Processor defines the interface for a conversion run over a directory tree.
// This allows the CLI to be tested without touching real files.
type Processor interface {
	// Scan enumerates the eligible entries below root in processing order.
	Scan(root string) ([]types.FileTask, error)

	// ProcessTasks converts the given entries in order and reports one
	// result per entry. Entry failures never stop the run.
	ProcessTasks(tasks []types.FileTask) []types.ConversionResult

	// Process scans root and processes everything found.
	Process(root string) ([]types.ConversionResult, error)
}

// Decoder turns a file of unknown encoding into text.
type Decoder interface {
	DecodeFile(path string) (encoding.Result, error)
}

// Ensure Engine implements the Processor interface
var _ Processor = (*Engine)(nil)

// Ensure the encoding detector satisfies Decoder
var _ Decoder = (*encoding.Detector)(nil)
