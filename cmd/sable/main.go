// Sable CLI - runs and inspects compiled sable images.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/sable-lang/sable/image"
	"github.com/sable-lang/sable/manifest"
	"github.com/sable-lang/sable/store"
	"github.com/sable-lang/sable/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("sable")

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0=errors, 1=info, 2=debug)")
	flag.Usage = usage
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "run":
		err = cmdRun(args[1:])
	case "disasm":
		err = cmdDisasm(args[1:])
	case "info":
		err = cmdInfo(args[1:])
	case "index":
		err = cmdIndex(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: sable [options] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run [image] [-e entry]     Run an image's entry function\n")
	fmt.Fprintf(os.Stderr, "  disasm [image] [-f name]   Disassemble an image\n")
	fmt.Fprintf(os.Stderr, "  info [image]               Print image metadata\n")
	fmt.Fprintf(os.Stderr, "  index [image] [-db path]   Index an image into the artifact store\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nWhen no image path is given, the output path from the nearest\nsable.toml is used.\n")
}

// resolveImagePath returns the explicit path when given, otherwise the
// output path from the nearest sable.toml.
func resolveImagePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", fmt.Errorf("no image path given and no sable.toml found")
	}
	log.Debugf("using manifest at %s", m.Dir)
	return m.OutputPath(), nil
}

func loadImage(path string) (*image.Image, *vm.Program, *vm.SymbolTable, *vm.Heap, error) {
	img, err := image.ReadFile(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	symbols := vm.NewSymbolTable()
	heap := vm.NewHeap()
	program, err := img.Rebuild(symbols, heap)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return img, program, symbols, heap, nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	entry := fs.String("e", "", "Entry function (default: image entry)")
	fs.Parse(args)

	path, err := resolveImagePath(fs.Arg(0))
	if err != nil {
		return err
	}
	img, program, symbols, heap, err := loadImage(path)
	if err != nil {
		return err
	}

	name := *entry
	if name == "" {
		name = img.Entry
	}
	if name == "" {
		name = "main"
	}
	log.Infof("running %s from %s", name, path)

	interp := vm.NewInterpreter(program, symbols, heap)
	result, err := interp.Run(name)
	if err != nil {
		return err
	}
	if result.Kind() == vm.ValInt {
		os.Exit(int(result.Int()))
	}
	return nil
}

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	only := fs.String("f", "", "Disassemble only this function")
	fs.Parse(args)

	path, err := resolveImagePath(fs.Arg(0))
	if err != nil {
		return err
	}
	_, program, symbols, _, err := loadImage(path)
	if err != nil {
		return err
	}

	if *only != "" {
		if sym, ok := symbols.Lookup(*only); ok {
			if fn, ok := program.Function(sym); ok {
				fmt.Print(fn.Body.Disassemble(*only, symbols))
				return nil
			}
		}
		return fmt.Errorf("no function %q in %s", *only, path)
	}

	for _, name := range sortedFunctionNames(program, symbols) {
		sym, _ := symbols.Lookup(name)
		fn, _ := program.Function(sym)
		fmt.Print(fn.Body.Disassemble(name, symbols))
		fmt.Println()
	}
	for _, class := range sortedClasses(program, symbols) {
		className := symbols.Name(class.Name)
		for _, method := range sortedMethodNames(class, symbols) {
			sym, _ := symbols.Lookup(method)
			fmt.Print(class.Methods[sym].Body.Disassemble(className+"."+method, symbols))
			fmt.Println()
		}
	}
	return nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	path, err := resolveImagePath(fs.Arg(0))
	if err != nil {
		return err
	}
	img, program, symbols, _, err := loadImage(path)
	if err != nil {
		return err
	}

	fmt.Printf("image:      %s\n", path)
	fmt.Printf("build id:   %s\n", img.BuildID)
	fmt.Printf("version:    %s\n", img.Version)
	fmt.Printf("entry:      %s\n", img.Entry)
	fmt.Printf("created:    %s\n", img.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("functions:  %d\n", len(program.Functions))
	fmt.Printf("classes:    %d\n", len(program.Classes))
	for _, name := range sortedFunctionNames(program, symbols) {
		sym, _ := symbols.Lookup(name)
		fn, _ := program.Function(sym)
		fmt.Printf("  %s/%d  (%d bytes, %d constants)\n",
			name, fn.Arity(), len(fn.Body.Code), len(fn.Body.Constants))
	}
	for _, class := range sortedClasses(program, symbols) {
		fmt.Printf("  class %s (%d methods)\n", symbols.Name(class.Name), len(class.Methods))
	}
	return nil
}

func cmdIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	dbPath := fs.String("db", "", "Artifact store database (default: manifest cache path)")
	fs.Parse(args)

	path, err := resolveImagePath(fs.Arg(0))
	if err != nil {
		return err
	}

	db := *dbPath
	if db == "" {
		m, err := manifest.FindAndLoad(".")
		if err != nil {
			return err
		}
		if m != nil {
			db = m.CachePath()
		}
	}
	if db == "" {
		return fmt.Errorf("no store database given and none configured in sable.toml")
	}

	img, program, symbols, _, err := loadImage(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	s, err := store.Open(db)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, fn := range program.Functions {
		h := s.Index(fn, symbols)
		log.Debugf("indexed %s as %x", symbols.Name(fn.Name), h[:8])
	}
	key := store.HashBytes(data)
	if err := s.PutImage(key, img.BuildID, data); err != nil {
		return err
	}
	fmt.Printf("indexed %d functions, image %x\n", s.Len(), key[:8])
	return nil
}

func sortedFunctionNames(program *vm.Program, symbols *vm.SymbolTable) []string {
	var names []string
	for sym := range program.Functions {
		names = append(names, symbols.Name(sym))
	}
	sort.Strings(names)
	return names
}

func sortedClasses(program *vm.Program, symbols *vm.SymbolTable) []*vm.Class {
	var classes []*vm.Class
	for _, class := range program.Classes {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		return symbols.Name(classes[i].Name) < symbols.Name(classes[j].Name)
	})
	return classes
}

func sortedMethodNames(class *vm.Class, symbols *vm.SymbolTable) []string {
	var names []string
	for sym := range class.Methods {
		names = append(names, symbols.Name(sym))
	}
	sort.Strings(names)
	return names
}
