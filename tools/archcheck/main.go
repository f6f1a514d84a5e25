// Command archcheck verifies that packages only import from their own
// level or below.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("kaksonen architecture level checker")
	fmt.Println()
	fmt.Println("  Level 1 (CMD):        cmd/, tools/")
	fmt.Println("  Level 2 (APP):        internal/app")
	fmt.Println("  Level 3 (OUTPUT):     internal/output")
	fmt.Println("  Level 4 (WORKFLOW):   internal/mycnf, snapshot, replication")
	fmt.Println("  Level 5 (TRANSPORT):  internal/remote")
	fmt.Println("  Level 6 (FOUNDATION): internal/errors, logger")
	fmt.Println("  Level 7 (PKG):        pkg/")
	fmt.Println()

	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	violations, checked, err := Check(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Checked %d Go files\n", checked)
	if len(violations) == 0 {
		fmt.Println("No architectural level violations found")
		return
	}

	fmt.Printf("Found %d violations:\n", len(violations))
	for _, v := range violations {
		fmt.Printf("  %s: %s imports %s (%s)\n",
			v.FromFile, levelName(v.FromLevel), v.ToPackage, levelName(v.ToLevel))
	}
	os.Exit(1)
}
