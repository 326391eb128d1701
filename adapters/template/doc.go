// Package exporttemplate renders the HTML invoice view.
//
// Templates are pongo2 (Django-style) sources; the invoice template is
// embedded and compiled by NewEmbeddedExecutor. The rendered markup wraps the
// document in an element whose id is the view lookup key, sized to the page
// width at the reference DPI, so a browser view can capture it as-is. The same
// output backs the HTML preview endpoint.
package exporttemplate
