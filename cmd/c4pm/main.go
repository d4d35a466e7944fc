// Command c4pm turns customer interview transcripts into a ranked list of
// product problems and a build specification for the most important one.
package main

func main() {
	Execute()
}
