// Package flight reads aircraft position reports, the point source fed to
// the nearest-neighbour indexes. Records are CSV lines of the form
//
//	CALLSIGN,latitude,longitude
//
// with the position in degrees. Input files may be gzip, zstd or lz4
// compressed.
package flight
