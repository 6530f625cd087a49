package mcp

import (
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// RAG answers questions and ingests text.
	RAG driving.RAGService

	// Document ingests files from the server's filesystem. Optional; the
	// ingest_file tool is only offered when it is set.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.RAG == nil {
		return ErrMissingRAGService
	}
	return nil
}
