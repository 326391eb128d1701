// Package exportchromium provides a headless Chromium view for invoice exports.
//
// The view renders the HTML invoice into a fresh tab of a shared browser,
// sized to the page width at the reference DPI. Embedded images are exposed as
// resources that resolve when the image loads or errors, and rasterization
// captures the target element beyond the viewport with the oversampling factor
// as the capture scale over a forced opaque background. Releasing the target
// closes its tab.
package exportchromium
