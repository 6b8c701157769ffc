// Package reader drives playback of a loaded document: one paragraph at a
// time, advancing on its own when a paragraph finishes, with the audio cache
// and prefetcher keeping the next paragraphs ready.
package reader
