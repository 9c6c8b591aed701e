// Package version provides build and version information for Sentient Sim.
package version

// Version is the current release version of Sentient Sim.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/SentientSim/internal/version.Version=x.y.z"
var Version = "0.3.0"
