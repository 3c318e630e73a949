/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"promptmanager/internal/backend"
	"promptmanager/internal/batch"
	"promptmanager/internal/catalog"
	"promptmanager/internal/config"
	"promptmanager/internal/domain"
	"promptmanager/internal/export"
	"promptmanager/internal/scratch"
	"promptmanager/internal/shell"
	"promptmanager/internal/storage"
	"promptmanager/internal/ui"
	"promptmanager/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.Long())
		},
	}
}

func uiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui [folder]",
		Short: "Launch the desktop UI, optionally browsing a template folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts := ui.Options{Config: a.cfg}
			if len(args) == 1 {
				opts.Folder = args[0]
			}
			return ui.Run(opts)
		},
	}
}

// chooseImage resolves the default image among candidates: an explicit
// name wins, -y picks none, otherwise the user is asked.
func (a *app) chooseImage(explicit string) storage.ImageChooser {
	return func(candidates []string) string {
		if explicit != "" {
			for _, c := range candidates {
				if strings.EqualFold(filepath.Base(c), explicit) {
					return c
				}
			}
			return ""
		}
		if a.yes {
			return ""
		}
		pick := a.choose
		if pick == nil {
			pick = askImage
		}
		choice, err := pick(candidates)
		if err != nil {
			if !isInterrupt(err) {
				a.log.Warn("default image prompt failed", "err", err)
			}
			return ""
		}
		return choice
	}
}

const noDefault = "(no default image)"

// askImage shows a terminal selection of candidates.
func askImage(candidates []string) (string, error) {
	options := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		options = append(options, filepath.Base(c))
	}
	options = append(options, noDefault)
	prompt := &survey.Select{
		Message: fmt.Sprintf("Choose the default image (%d found):", len(candidates)),
		Options: options,
	}
	var selected string
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	for _, c := range candidates {
		if filepath.Base(c) == selected {
			return c, nil
		}
	}
	return "", nil
}

func templateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect and write prompt templates",
	}

	show := &cobra.Command{
		Use:   "show <template.json>",
		Short: "Print the sections of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := storage.ReadDocument(args[0])
			if err != nil {
				return err
			}
			st := doc.State()
			cmd.Printf("Top:      %s\n", st.Top)
			cmd.Printf("Middle:   %s\n", st.Middle)
			cmd.Printf("Bottom:   %s\n", st.Bottom)
			cmd.Printf("Negative: %s\n", st.Negative)
			if doc.DefaultImage != "" {
				cmd.Printf("Default image: %s\n", doc.DefaultImage)
			}
			cmd.Printf("Combined: %s\n", batch.Join(st.Top, st.Middle, st.Bottom))
			return nil
		},
	}

	var top, middle, bottom, negative, defaultImage string
	save := &cobra.Command{
		Use:   "save <template.json>",
		Short: "Write a template from the given sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.PromptState{Top: top, Middle: middle, Bottom: bottom, Negative: negative}
			doc, err := storage.Save(args[0], st, a.chooseImage(defaultImage))
			if err != nil {
				return err
			}
			cmd.Printf("Saved %s\n", args[0])
			if doc.DefaultImage != "" {
				cmd.Printf("Default image: %s\n", doc.DefaultImage)
			}
			return nil
		},
	}
	save.Flags().StringVar(&top, "top", "", "top section")
	save.Flags().StringVar(&middle, "middle", "", "middle section")
	save.Flags().StringVar(&bottom, "bottom", "", "bottom section")
	save.Flags().StringVar(&negative, "negative", "", "negative prompt")
	save.Flags().StringVar(&defaultImage, "default-image", "", "basename of the image to mark as default")

	media := &cobra.Command{
		Use:   "media <template.json>",
		Short: "List media files related to a template, images first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, stem := templateParts(args[0])
			for p := range storage.FindRelatedMedia(folder, stem).All() {
				mark := " "
				if storage.IsDefault(args[0], p) {
					mark = "*"
				}
				cmd.Printf("%s %s\n", mark, filepath.Base(p))
			}
			return nil
		},
	}

	var openPreview bool
	preview := &cobra.Command{
		Use:   "preview <template.json>",
		Short: "Print the image the browser would show for a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, stem := templateParts(args[0])
			p := storage.PickPreview(args[0], storage.FindRelatedMedia(folder, stem).Paths())
			if p == "" {
				return errors.New("no preview image found")
			}
			cmd.Println(p)
			if openPreview {
				return shell.Open(p)
			}
			return nil
		},
	}
	preview.Flags().BoolVar(&openPreview, "open", false, "open the image with the default application")

	copyCmd := &cobra.Command{
		Use:   "copy <template.json>",
		Short: "Copy the combined prompt of a template to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := storage.Load(args[0])
			if err != nil {
				return err
			}
			combined := batch.Join(st.Top, st.Middle, st.Bottom)
			if combined == "" {
				return &domain.ValidationError{Op: "copy", Msg: "the template has no prompt text"}
			}
			if err := shell.Copy(combined); err != nil {
				return err
			}
			cmd.Println("Copied to clipboard.")
			return nil
		},
	}

	var clearDefault bool
	def := &cobra.Command{
		Use:   "default <template.json> [image]",
		Short: "Set or clear the default preview image of a template",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if clearDefault {
				if err := storage.SetDefaultImage(path, ""); err != nil {
					return err
				}
				cmd.Println("Default image cleared.")
				return nil
			}
			folder, stem := templateParts(path)
			images := storage.FindRelatedMedia(folder, stem).Images()
			var name string
			if len(args) == 2 {
				name = filepath.Base(args[1])
			} else if len(images) > 0 {
				name = filepath.Base(a.chooseImage("")(images))
				if name == "." {
					name = ""
				}
			}
			if name == "" {
				return errors.New("no image chosen")
			}
			if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
				return fmt.Errorf("image %s not found next to the template", name)
			}
			if err := storage.SetDefaultImage(path, name); err != nil {
				return err
			}
			cmd.Printf("Default image: %s\n", name)
			return nil
		},
	}
	def.Flags().BoolVar(&clearDefault, "clear", false, "remove the default image")

	cmd.AddCommand(show, save, media, preview, copyCmd, def)
	return cmd
}

func templateParts(path string) (folder, stem string) {
	base := filepath.Base(path)
	return filepath.Dir(path), strings.TrimSuffix(base, filepath.Ext(base))
}

// readBatch builds a batch from a text file with one prompt per line.
// Lines may carry the section delimiter; blank lines are skipped.
func readBatch(path string) (*batch.List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	l := &batch.List{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		parts := batch.Split(sc.Text())
		if _, err := l.Add(parts[0], parts[1], parts[2]); err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				continue
			}
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}
	return l, nil
}

func batchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Work with prompt batches",
	}
	var (
		out       string
		title     string
		negative  string
		showParts bool
		pageSize  string
	)
	exp := &cobra.Command{
		Use:   "export <lines.txt>",
		Short: "Clean a file of prompts and export it as text or a PDF sheet",
		Long: `Each line is split on the section delimiter, whitespace is collapsed and
empty lines are dropped. Without --out the cleaned batch is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readBatch(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				content, err := l.Serialize()
				if err != nil {
					return err
				}
				cmd.Println(content)
				return nil
			}
			opt := export.PDFOptions{Title: title, Negative: negative, ShowParts: showParts, PageSize: pageSize}
			if err := export.Write(out, l.Entries(), opt); err != nil {
				return err
			}
			a.log.Info("batch exported", "lines", l.Len(), "path", out)
			cmd.Printf("%s, written to %s\n", l.CountLabel(), out)
			return nil
		},
	}
	exp.Flags().StringVarP(&out, "out", "o", "", "output file (.txt or .pdf)")
	exp.Flags().StringVar(&title, "title", "Prompt Batch", "PDF title")
	exp.Flags().StringVar(&negative, "negative", "", "negative prompt printed under the PDF entries")
	exp.Flags().BoolVar(&showParts, "parts", false, "print each section on its own line in the PDF")
	exp.Flags().StringVar(&pageSize, "page", "A4", "PDF page size (A4 or Letter)")
	cmd.AddCommand(exp)
	return cmd
}

func (a *app) openCatalog(ctx context.Context) (*catalog.Catalog, error) {
	p, err := a.cfg.Catalog.CatalogPath()
	if err != nil {
		return nil, err
	}
	c, recreated, err := catalog.OpenOrRecreate(ctx, p)
	if err != nil {
		return nil, err
	}
	if recreated {
		a.log.Warn("catalog was corrupt and has been recreated", "path", p)
	}
	return c, nil
}

// folderArg returns args[0], else the default template folder, else the
// working directory.
func (a *app) folderArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if d := config.LoadSettings(a.settings()).DefaultTemplateDir; d != "" {
		return d
	}
	return "."
}

func (a *app) settings() string {
	if a.settingsPath != "" {
		return a.settingsPath
	}
	p, err := config.SettingsPath()
	if err != nil {
		return filepath.Join(os.TempDir(), config.SettingsFileName)
	}
	return p
}

func catalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Index template folders for search",
	}
	var publish bool
	rebuild := &cobra.Command{
		Use:   "rebuild [folder]",
		Short: "Re-index all templates of a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			c, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			folder := a.folderArg(args)
			st, err := c.Rebuild(ctx, folder, a.cfg.Catalog.Workers)
			if err != nil {
				return err
			}
			cmd.Printf("Indexed %d templates (%d skipped) in %s\n", st.Indexed, st.Skipped, st.Elapsed.Round(time.Millisecond))
			if publish {
				n, err := backend.PublishFolder(ctx, a.cfg.Catalog.PGDSN, c, folder)
				if err != nil {
					return fmt.Errorf("publish: %w", err)
				}
				cmd.Printf("Published %d templates\n", n)
			}
			return nil
		},
	}
	rebuild.Flags().BoolVar(&publish, "publish", false, "mirror the folder to the shared postgres catalog")

	var (
		folder   string
		negative bool
		limit    int
		remote   bool
	)
	search := &cobra.Command{
		Use:   "search [text]",
		Short: "Full-text search over indexed prompts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			text := strings.Join(args, " ")
			var res []catalog.Result
			if remote {
				m, err := backend.Open(ctx, a.cfg.Catalog.PGDSN)
				if err != nil {
					return err
				}
				defer func() { _ = m.Close() }()
				if res, err = m.Search(ctx, text, limit); err != nil {
					return err
				}
			} else {
				c, err := a.openCatalog(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = c.Close() }()
				if res, err = c.Search(ctx, catalog.Query{Text: text, Folder: folder, Negative: negative, Limit: limit}); err != nil {
					return err
				}
			}
			if len(res) == 0 {
				cmd.Println("No matches.")
				return nil
			}
			for _, r := range res {
				line := r.Path
				if r.Snippet != "" {
					line += "\n    " + r.Snippet
				}
				cmd.Println(line)
			}
			return nil
		},
	}
	search.Flags().StringVar(&folder, "folder", "", "restrict to one indexed folder")
	search.Flags().BoolVar(&negative, "negative", false, "also match negative prompts")
	search.Flags().IntVar(&limit, "limit", 50, "maximum results")
	search.Flags().BoolVar(&remote, "remote", false, "search the shared postgres catalog")

	cmd.AddCommand(rebuild, search)
	return cmd
}

func purgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete scratch files left behind by earlier sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := scratch.PurgeStale(a.cfg.General.ScratchDir)
			cmd.Printf("Removed %d stale scratch files\n", n)
			return nil
		},
	}
}

func settingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the remembered template folder",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.LoadSettings(a.settings())
			cmd.Printf("Settings file: %s\n", s.Path())
			dir := s.DefaultTemplateDir
			if dir == "" {
				dir = "(none)"
			}
			cmd.Printf("Default template folder: %s\n", dir)
			return nil
		},
	}
	set := &cobra.Command{
		Use:   "set-default-dir <folder>",
		Short: "Remember a folder as the default template folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
				return fmt.Errorf("%s is not a folder", abs)
			}
			s := config.LoadSettings(a.settings())
			s.SetDefaultTemplateDir(abs)
			if err := s.Save(); err != nil {
				return err
			}
			cmd.Printf("Default template folder: %s\n", abs)
			return nil
		},
	}
	clearDir := &cobra.Command{
		Use:   "clear-default-dir",
		Short: "Forget the default template folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.LoadSettings(a.settings())
			s.SetDefaultTemplateDir("")
			if err := s.Save(); err != nil {
				return err
			}
			cmd.Println("Default template folder cleared.")
			return nil
		},
	}
	cmd.AddCommand(show, set, clearDir)
	return cmd
}

// isInterrupt reports whether err is the user aborting a prompt.
func isInterrupt(err error) bool { return errors.Is(err, terminal.InterruptErr) }
