// Package normalisers turns raw uploads into clean text documents.
// Each normaliser extracts text from specific MIME types; the Registry
// picks the highest-priority normaliser for a document.
//
// Normalisers are registered with the Registry at startup.
package normalisers
