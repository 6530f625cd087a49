package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrMissingRAGService)
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingRAGService)
	assert.NoError(t, (&Ports{RAG: &mockRAGService{}}).Validate())
}
