package cli

var PrintReleases = printReleases
