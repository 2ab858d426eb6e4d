// Package pipeline turns invoice data into the HTML document the exporter
// captures.
//
// Stages:
//   - money and label formatting per currency
//   - notes: Markdown via goldmark, fenced code highlighted by chroma,
//     output sanitized by bluemonday
//   - template rendering (html/template) of the invoice view
//   - CSS injection into the rendered document
//   - rewriting of relative image and stylesheet URLs to file:// URLs
//
// Rasterizing and PDF assembly live in the root invoicepdf package.
package pipeline
