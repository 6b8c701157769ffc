// Package document turns uploaded files into an ordered list of paragraphs
// ready to be read aloud. PDF, Word (DOCX), Markdown and plain text files
// are supported.
package document
