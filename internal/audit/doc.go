// Package audit records connect and disconnect actions as an append-only JSONL
// trail.
//
// Each line carries the timestamp, client address, action, parameters, outcome
// and result code. The file is rotated by size and age through lumberjack.
package audit
