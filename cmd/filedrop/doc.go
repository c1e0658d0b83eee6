// Package main provides the filedrop command-line tool.
//
// Subcommands:
//
//	filedrop addrs                         list local addresses, preferred first
//	filedrop serve [options] <file>        serve a file until interrupted
//	filedrop split [options] <file>        split a file into numbered chunks
//	filedrop encode [options] <file>       print a base64 decode command
//
// Every subcommand accepts -config to read a json, yaml or toml file.
// Environment variables prefixed with FILEDROP_ override file values, and
// flags override both.
package main
