// Package exportpdf assembles raster pages into PDF documents.
//
// FPDFAssembler (default) embeds each encoded strip unchanged at its placement
// on a fixed-size page with zero margins. CanvasAssembler draws the decoded
// strips through the tdewolff/canvas PDF writer. Both validate every placement
// before writing and never return a partial document.
package exportpdf
