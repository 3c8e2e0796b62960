package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vsariola/modsynth"
	"github.com/vsariola/modsynth/cmd"
	"github.com/vsariola/modsynth/dot"
	"github.com/vsariola/modsynth/engine"
	"github.com/vsariola/modsynth/gomidi"
	"github.com/vsariola/modsynth/oto"
	"github.com/vsariola/modsynth/version"
	"github.com/vsariola/modsynth/vm"
)

func main() {
	midiInput := flag.String("midi-input", "", "Open the first MIDI input whose name starts with this prefix. \"*\" opens the first input.")
	voiceFlag := flag.String("voice", "", "Voice-source module played by the keyboard and MIDI. Defaults to the first one in the patch; one is added if there is none.")
	octave := flag.Int("octave", 0, "Octave shift of the computer keyboard, added to the octave of the voice module.")
	gate := flag.Duration("gate", 300*time.Millisecond, "How long a note sounds: computer keys have no release, and rendered notes are held this long.")
	renderLength := flag.Duration("render", 0, "Render this long offline instead of playing live.")
	notes := flag.String("notes", "", "Comma separated notes played at the start of an offline render, e.g. 60,64,67.")
	outFile := flag.String("o", "out.wav", "Output file of an offline render; a .raw extension writes headerless samples.")
	pcm := flag.Bool("c", false, "Convert rendered audio to 16-bit signed PCM.")
	example := flag.String("example", "", "Play one of the example patches instead of a patch file: "+strings.Join(slices.Sorted(maps.Keys(modsynth.ExamplePatches())), ", ")+".")
	dotFile := flag.String("dot", "", "Write the patch as a Graphviz document to this file.")
	list := flag.Bool("list", false, "List the module kinds with their parameters and ports.")
	sampleRate := flag.Int("sample-rate", vm.DefaultSampleRate, "Sample rate in Hz.")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *list {
		printKinds()
		os.Exit(0)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	patch := modsynth.DefaultPatch()
	switch {
	case *example != "" && flag.NArg() > 0:
		log.Fatal("-example and a patch file are mutually exclusive")
	case *example != "":
		var ok bool
		if patch, ok = modsynth.ExamplePatches()[*example]; !ok {
			log.Fatalf("unknown example patch %q", *example)
		}
	case flag.NArg() > 0:
		var err error
		if patch, err = cmd.ReadPatch(flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
	}
	voice := modsynth.ID(*voiceFlag)
	patch, voice = withVoice(patch, voice)
	if m, ok := patch.Module(voice); ok {
		*octave += int(m.Parameters["octave"].Number)
	}
	if *dotFile != "" {
		if err := writeDot(*dotFile, patch); err != nil {
			log.Fatal(err)
		}
	}
	if *renderLength > 0 {
		if err := render(patch, voice, *sampleRate, *renderLength, *gate, *notes, *outFile, *pcm, logger); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := play(patch, voice, *sampleRate, *octave, *gate, *midiInput, logger); err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Modsynth command line utility for playing .yml/.json patch files.\nUsage: %s [flags] [patch]\n", os.Args[0])
	flag.PrintDefaults()
}

func printKinds() {
	title := cases.Title(language.English)
	for _, k := range modsynth.Kinds {
		t := modsynth.KindTypes[k]
		fmt.Printf("%s\n", title.String(string(k)))
		for _, p := range t.Params {
			if p.IsEnum() {
				fmt.Printf("  %-10s %s\n", p.Name, strings.Join(p.Choices, "|"))
			} else {
				fmt.Printf("  %-10s %g..%g\n", p.Name, p.Min, p.Max)
			}
		}
		if ports := k.InputPorts(); len(ports) > 0 {
			fmt.Printf("  inputs:    %s\n", strings.Join(ports, ", "))
		}
		if t.HasOutput {
			fmt.Printf("  outputs:   %s\n", modsynth.OutputPort)
		}
	}
}

// withVoice finds the voice-source module to play. If the patch has none,
// one is added and connected to the first output module, which is added too
// if needed.
func withVoice(p modsynth.Patch, voice modsynth.ID) (modsynth.Patch, modsynth.ID) {
	var out modsynth.ID
	for _, m := range p.Modules {
		k, err := modsynth.ParseKind(string(m.Kind))
		if err != nil {
			continue
		}
		if k == modsynth.VoiceSource && voice == "" {
			voice = m.ID
		}
		if k == modsynth.Output && out == "" {
			out = m.ID
		}
	}
	if voice == "" {
		p = p.Copy()
		voice = "keys"
		if out == "" {
			out = "speaker"
			p.Modules = append(p.Modules, modsynth.ModuleSpec{ID: out, Kind: modsynth.Output})
		}
		p.Modules = append(p.Modules, modsynth.ModuleSpec{ID: voice, Kind: modsynth.VoiceSource})
		p.Connections = append(p.Connections, modsynth.Connection{Source: voice, Target: out})
	}
	return p, voice
}

func writeDot(filename string, p modsynth.Patch) error {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	e, err := dot.New(name)
	if err != nil {
		return err
	}
	s, err := e.Patch(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(s), 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", filename, err)
	}
	return nil
}

func parseNotes(s string) ([]int, error) {
	var ret []int
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid note %q", f)
		}
		ret = append(ret, n)
	}
	return ret, nil
}

func render(p modsynth.Patch, voice modsynth.ID, sampleRate int, length, gate time.Duration, noteList, filename string, pcm bool, logger *slog.Logger) error {
	notes, err := parseNotes(noteList)
	if err != nil {
		return err
	}
	rt := vm.New(sampleRate)
	e, err := engine.New(rt, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer e.Teardown()
	if err := e.Load(p); err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}
	for _, n := range notes {
		if err := e.NoteOn(voice, n, 1); err != nil {
			return err
		}
	}
	samples := make([]float32, int(length.Seconds()*float64(sampleRate)))
	held := min(int(gate.Seconds()*float64(sampleRate)), len(samples))
	rt.Render(samples[:held])
	for _, n := range notes {
		if err := e.NoteOff(voice, n); err != nil {
			return err
		}
	}
	const chunk = 1024
	for i := held; i < len(samples); i += chunk {
		rt.Render(samples[i:min(i+chunk, len(samples))])
		e.Sweep()
	}
	r := modsynth.Render{Samples: samples, SampleRate: sampleRate}
	var b []byte
	if strings.EqualFold(filepath.Ext(filename), ".raw") {
		b, err = r.Raw(pcm)
	} else {
		b, err = r.Wav(pcm)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", filename, err)
	}
	return nil
}

func play(p modsynth.Patch, voice modsynth.ID, sampleRate, octave int, gate time.Duration, midiInput string, logger *slog.Logger) error {
	device, err := oto.NewContext(sampleRate, 0)
	if err != nil {
		return err
	}
	defer device.Close()
	rt := vm.New(sampleRate, vm.WithDevice(device))
	device.Attach(rt)
	e, err := engine.New(rt, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer e.Teardown()
	if err := e.Load(p); err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweep(ctx, e)
	}()
	if midiInput != "" {
		midiContext := cmd.NewMidiContext()
		defer midiContext.Close()
		d := gomidi.NewDispatcher(e, voice, gomidi.WithLogger(logger))
		prefix := midiInput
		if prefix == "*" {
			prefix = ""
		}
		if err := midiContext.Open(prefix, d.HandleMessage); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(ctx)
		}()
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		<-ctx.Done()
		return nil
	}
	fmt.Fprintf(os.Stderr, "Playing %s: keys z..m and q..i play notes, - and + shift octaves, esc quits.\r\n", voice)
	return keyboard(ctx, cancel, fd, e, voice, octave, gate)
}

// sweep removes finished voices while the host is otherwise idle.
func sweep(ctx context.Context, e *engine.Engine) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Sweep()
		}
	}
}

// keyboard plays notes from the terminal in raw mode. Terminals report no
// key releases, so every note is released after gate.
func keyboard(ctx context.Context, cancel func(), fd int, e *engine.Engine, voice modsynth.ID, octave int, gate time.Duration) error {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("could not put the terminal in raw mode: %w", err)
	}
	defer term.Restore(fd, state)
	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				cancel()
				return
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case k := <-keys:
			switch k {
			case 27, 3: // esc, ctrl-c
				return nil
			case '-':
				octave = max(octave-1, -4)
				continue
			case '+', '=':
				octave = min(octave+1, 4)
				continue
			}
			note, ok := modsynth.KeyNote(rune(k), octave)
			if !ok {
				continue
			}
			if err := e.NoteOn(voice, note, 1); err != nil {
				if errors.Is(err, modsynth.ErrRuntimeUnavailable) {
					return err
				}
				continue
			}
			time.AfterFunc(gate, func() { e.NoteOff(voice, note) })
		}
	}
}
