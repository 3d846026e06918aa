// Command quickroute decodes, archives and serves GPS tracks embedded
// in QuickRoute JPEG files.
package main

import "quickroute/internal/cmd"

func main() {
	cmd.Execute()
}
