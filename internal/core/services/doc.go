// Package services implements the driving port interfaces.
// Services contain the pipeline logic and orchestrate calls to
// driven ports; they never import adapters.
package services
