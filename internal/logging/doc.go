// Package logging configures structured logging for fcmirror.
//
// Every run writes JSON logs to a size-rotated file under ~/.fcmirror/logs/.
// With --debug the level drops to debug and entries are mirrored to stderr;
// downloads then print plain progress lines instead of the interactive
// display.
package logging
