// Command jobpipeline runs the job-listing crawler as a long-lived
// process: one poller per catalog site, feeding a shared sink gateway
// and housekeeper, until stopped by SIGINT or SIGTERM.
package main

func main() {
	Execute()
}
