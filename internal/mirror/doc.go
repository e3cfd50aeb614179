// Package mirror orchestrates a full mirror run: crawl the start URL,
// localize every discovered page's resources, and assemble the result
// into a single zip archive. A Session runs one mirror at a time;
// BatchProcessor fans sessions out over multiple start URLs.
package mirror
