// Package queue keeps a window of upcoming paragraphs synthesized ahead of
// the read position, so playback rarely waits on the network.
package queue
