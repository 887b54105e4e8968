// venue-acoustics: crowd- and weather-aware acoustic simulation of performance venues
package main

import "github.com/teslashibe/go-venue-acoustics/internal/cli"

func main() {
	cli.Execute()
}
