// Package webfetch downloads a web page and converts its HTML to Markdown so
// it can be handed to a model as a tool result.
package webfetch
