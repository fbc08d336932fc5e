// Package jsonfile reads parse-result JSON files produced by the
// external document parser, one document per file, and watches a
// corpus directory for new or rewritten files.
package jsonfile
