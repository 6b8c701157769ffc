// Package audio decodes synthesized speech into sample buffers and plays
// them through the system audio device using the oto/v3 library. It also
// provides a scriptable mock sink for tests.
package audio
