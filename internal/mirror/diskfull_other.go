//go:build !unix

package mirror

func isDiskFull(error) bool { return false }
