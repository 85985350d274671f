// Package auditlog builds the DDL for shadow log tables and the row-level
// triggers that copy every INSERT, UPDATE and DELETE into them.
//
// The package never touches an ORM or a connection. Callers describe their
// tables as TableSchema values, pick a Dialect and receive a Script: an
// ordered list of statements that can be written to disk, read back and
// executed one at a time.
package auditlog
