package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pdfscript/model"
	"pdfscript/sandbox"
)

type formFile struct {
	Metadata         model.DocMetadata       `yaml:"metadata"`
	Fields           []model.FieldDescriptor `yaml:"fields"`
	CalculationOrder []string                `yaml:"calculationOrder"`
}

// formrun loads a YAML form definition and feeds it events from
// stdin, one per line:
//
//	<fieldID> <trigger> [value]
//
// Updates and script errors are printed as they arrive.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: formrun <form.yaml>")
		os.Exit(1)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		panic(err)
	}
	var def formFile
	if err := yaml.Unmarshal(raw, &def); err != nil {
		panic(err)
	}

	bundle, err := sandbox.BuildBundle(def.Fields, def.CalculationOrder, def.Metadata)
	if err != nil {
		panic(err)
	}

	engine := sandbox.NewChannelTransport()
	defer engine.Destroy()
	engine.OnMessage(func(msg sandbox.Message) {
		switch m := msg.(type) {
		case sandbox.UpdateMessage:
			fmt.Printf("%s.%s = %v\n", m.ObjectID, m.Property, m.Value)
		case sandbox.ErrorMessage:
			fmt.Fprintf(os.Stderr, "ERR %s/%s: %s\n", m.FieldID, m.Trigger, m.Message)
		}
	})

	ctx := context.Background()
	if err := engine.Create(ctx, bundle); err != nil {
		panic(err)
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		parts := strings.SplitN(strings.TrimSpace(sc.Text()), " ", 3)
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		msg := sandbox.EventMessage{FieldID: parts[0], Trigger: parts[1]}
		if len(parts) == 3 {
			msg.Payload = model.EventPayload{Value: parts[2], WillCommit: true}
		}
		if err := engine.SendEvent(ctx, msg); err != nil {
			fmt.Fprintf(os.Stderr, "ERR: %v\n", err)
		}
	}
}
