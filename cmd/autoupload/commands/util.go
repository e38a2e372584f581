// Copyright (C) 2021 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
	"github.com/toitlang/autoupload/cmd/autoupload/target"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"
)

type encoder interface {
	Encode(interface{}) error
}

// parseOutputFlag returns the encoder for the --output flag. 'short' and
// 'env' both print one line per element.
func parseOutputFlag(cmd *cobra.Command, w io.Writer) (encoder, error) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(output) {
	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e, nil
	case "yaml":
		return yaml.NewEncoder(w), nil
	case "short", "env":
		return newShortEncoder(w), nil
	default:
		return nil, fmt.Errorf("--output flag '%s' was not recognized. Must be either env, short, json or yaml", output)
	}
}

type shortEncoder struct {
	w io.Writer
}

func newShortEncoder(w io.Writer) *shortEncoder {
	return &shortEncoder{
		w: w,
	}
}

type Elements interface {
	Elements() []Short
}

type Short interface {
	Short() string
}

type shortString string

func (s shortString) Short() string {
	return string(s)
}

func (s *shortEncoder) Encode(v interface{}) error {
	es, ok := v.(Elements)
	if !ok {
		return fmt.Errorf("value type %T was not compatible with the Elements interface", v)
	}
	for _, e := range es.Elements() {
		fmt.Fprintln(s.w, e.Short())
	}
	return nil
}

// buildConfigOutput prints a build configuration as KEY=value lines, with
// values quoted for a POSIX shell, or as an ordered json/yaml mapping.
type buildConfigOutput struct {
	cfg *target.BuildConfig
}

func (o buildConfigOutput) Elements() []Short {
	var res []Short
	for _, k := range o.cfg.Keys() {
		var v string
		if o.cfg.IsList(k) {
			v = shellescape.Quote(shellescape.QuoteCommand(o.cfg.GetList(k)))
		} else {
			v = shellescape.Quote(o.cfg.Get(k))
		}
		res = append(res, shortString(k+"="+v))
	}
	return res
}

func (o buildConfigOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.cfg.Map())
}

func (o buildConfigOutput) MarshalYAML() (interface{}, error) {
	var res yaml.MapSlice
	m := o.cfg.Map()
	for _, k := range o.cfg.Keys() {
		res = append(res, yaml.MapItem{Key: k, Value: m[k]})
	}
	return res, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func maskSecret(s string) string {
	if s == "" {
		return "(empty)"
	}
	maskedLength := len(s)
	if maskedLength > 8 {
		maskedLength = 8
	}
	return strings.Repeat("*", maskedLength)
}
