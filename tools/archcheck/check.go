package main

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const modulePath = "github.com/yairfalse/kaksonen"

type Level int

const (
	LevelCmd Level = iota + 1
	LevelApp
	LevelOutput
	LevelWorkflow
	LevelTransport
	LevelFoundation
	LevelPkg
)

var packageLevels = map[string]Level{
	"cmd":                  LevelCmd,
	"tools":                LevelCmd,
	"internal/app":         LevelApp,
	"internal/output":      LevelOutput,
	"internal/replication": LevelWorkflow,
	"internal/snapshot":    LevelWorkflow,
	"internal/mycnf":       LevelWorkflow,
	"internal/remote":      LevelTransport,
	"internal/errors":      LevelFoundation,
	"internal/logger":      LevelFoundation,
	"pkg":                  LevelPkg,
}

type Violation struct {
	FromFile    string
	FromPackage string
	FromLevel   Level
	ToPackage   string
	ToLevel     Level
}

// getPackageLevel returns the level of the longest matching prefix, or 0
func getPackageLevel(pkgPath string) Level {
	best, level := -1, Level(0)
	for prefix, l := range packageLevels {
		if pkgPath != prefix && !strings.HasPrefix(pkgPath, prefix+"/") {
			continue
		}
		if len(prefix) > best {
			best, level = len(prefix), l
		}
	}
	return level
}

func checkFile(root, filePath string) ([]Violation, error) {
	var violations []Violation

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, filepath.Dir(filePath))
	if err != nil {
		return nil, err
	}
	fromPackage := filepath.ToSlash(rel)
	fromLevel := getPackageLevel(fromPackage)
	if fromLevel == 0 {
		return nil, nil
	}

	for _, imp := range node.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !strings.HasPrefix(importPath, modulePath+"/") {
			continue
		}
		importPath = strings.TrimPrefix(importPath, modulePath+"/")

		toLevel := getPackageLevel(importPath)
		if toLevel == 0 {
			continue
		}

		// Importing from a higher level
		if toLevel < fromLevel {
			violations = append(violations, Violation{
				FromFile:    filePath,
				FromPackage: fromPackage,
				FromLevel:   fromLevel,
				ToPackage:   importPath,
				ToLevel:     toLevel,
			})
		}
	}

	return violations, nil
}

// walkGoFiles lists Go files under root, skipping directories the go tool
// ignores
func walkGoFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Check reports every upward import under root
func Check(root string) ([]Violation, int, error) {
	files, err := walkGoFiles(root)
	if err != nil {
		return nil, 0, err
	}

	var all []Violation
	for _, file := range files {
		violations, err := checkFile(root, file)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, violations...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].FromFile < all[j].FromFile })
	return all, len(files), nil
}

func levelName(l Level) string {
	switch l {
	case LevelCmd:
		return "CMD (Level 1)"
	case LevelApp:
		return "APP (Level 2)"
	case LevelOutput:
		return "OUTPUT (Level 3)"
	case LevelWorkflow:
		return "WORKFLOW (Level 4)"
	case LevelTransport:
		return "TRANSPORT (Level 5)"
	case LevelFoundation:
		return "FOUNDATION (Level 6)"
	case LevelPkg:
		return "PKG (Level 7)"
	default:
		return "UNKNOWN"
	}
}
