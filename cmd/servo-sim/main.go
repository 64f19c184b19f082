// servo-sim runs the servo firmware on the host against simulated hardware.
package main

import "servocode-go/cmd/servo-sim/cmd"

func main() {
	cmd.Execute()
}
