package main

// Windows audio backends do not write to stderr.
func silenceStderr() {}
