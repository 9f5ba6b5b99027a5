// Package avatar resolves a canonical profile-image URL from a rendered
// profile page.
//
// Three extractors are tried in a fixed order and the first hit wins:
//   - structured data: ld+json blocks (author/mainEntity image)
//   - markup: <img> tags pointing at the image host
//   - network log: request/response events observed while the page loaded
//
// Every address is rewritten to the 400x400 size variant by Normalize. The
// package performs no I/O; pages are plain values so extraction can be tested
// from fixtures without a browser.
package avatar
