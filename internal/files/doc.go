// Package files locates report files on disk.
//
// The processor command accepts a directory as its input and processes the
// most recently modified report inside it:
//
//	latest, err := files.NewDiscovery(paths.DataDir).LatestReport(".")
package files
