// Package exportfiber exposes invoice export over HTTP with fiber.
//
// Routes, relative to the base path:
//
//	GET  /document    current session document and totals
//	PUT  /document    replace the session document
//	POST /download    build and return the PDF (?mode=link stores it instead)
//	POST /share       build and share the PDF
//	POST /preview     render the HTML view
//	GET  /files/*     signed download of a stored PDF
//
// Errors are written as {"error":{"message","code"}} with a status derived
// from the export error kind.
package exportfiber
