package cmd

// Version is the application version.
// Set at build time with -ldflags "-X github.com/chrisuehlinger/vibedom/cmd.Version=1.0.0".
var Version = "0.1.0"
