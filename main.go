// Command droid-harness runs Android device tests over an Appium session.
package main

import "github.com/devicelab-dev/droid-harness/pkg/cli"

func main() {
	cli.Execute()
}
