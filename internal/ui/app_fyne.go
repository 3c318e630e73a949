//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"promptmanager/internal/backend"
	"promptmanager/internal/batch"
	"promptmanager/internal/catalog"
	"promptmanager/internal/crash"
	"promptmanager/internal/domain"
	"promptmanager/internal/export"
	applog "promptmanager/internal/log"
	"promptmanager/internal/session"
	"promptmanager/internal/shell"
	"promptmanager/internal/storage"
	"promptmanager/internal/thumbnail"
	"promptmanager/internal/version"
)

const appTitle = "Prompt Manager"

// Run starts the Fyne desktop UI.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	cfg := opts.Config

	sess, err := session.Open(session.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	defer crash.Recover(sess)
	stopSignals := sess.Scratch.RemoveOnSignal(os.Exit)
	defer stopSignals()

	var cat *catalog.Catalog
	if p, err := cfg.Catalog.CatalogPath(); err == nil {
		c, recreated, err := catalog.OpenOrRecreate(context.Background(), p)
		if err != nil {
			l.Warn("catalog unavailable; thumbnails decoded directly", slog.Any("err", err))
		} else {
			if recreated {
				l.Warn("catalog was corrupt and has been recreated", slog.String("path", p))
			}
			c.SetThumbCacheLimit(int64(cfg.Catalog.ThumbCacheMB) << 20)
			cat = c
		}
	}
	var thumbs Thumbnailer
	if cat != nil {
		thumbs = cat
	}

	fyneApp := app.NewWithID("promptmanager")
	applyTheme(fyneApp, cfg.General.Theme)
	w := fyneApp.NewWindow(appTitle)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 720)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")

	// Prompt fields
	newField := func(placeholder string) *widget.Entry {
		e := widget.NewMultiLineEntry()
		e.SetPlaceHolder(placeholder)
		e.Wrapping = fyne.TextWrapWord
		e.SetMinRowsVisible(3)
		return e
	}
	topEntry := newField("Top: subject, framing")
	middleEntry := newField("Middle: details")
	bottomEntry := newField("Bottom: style, quality")
	negEntry := newField("Negative prompt")

	var undoBtn, redoBtn *widget.Button
	refreshHistoryButtons := func() {
		if sess.History.CanUndo() {
			undoBtn.Enable()
		} else {
			undoBtn.Disable()
		}
		if sess.History.CanRedo() {
			redoBtn.Enable()
		} else {
			redoBtn.Disable()
		}
	}
	applying := false
	readFields := func() domain.PromptState {
		return domain.PromptState{Top: topEntry.Text, Middle: middleEntry.Text, Bottom: bottomEntry.Text, Negative: negEntry.Text}
	}
	onFieldChanged := func(string) {
		if applying {
			return
		}
		sess.Edit(readFields())
		refreshHistoryButtons()
	}
	for _, e := range []*widget.Entry{topEntry, middleEntry, bottomEntry, negEntry} {
		e.OnChanged = onFieldChanged
	}
	sess.OnApply(func(st domain.PromptState) {
		applying = true
		defer func() { applying = false }()
		topEntry.SetText(st.Top)
		middleEntry.SetText(st.Middle)
		bottomEntry.SetText(st.Bottom)
		negEntry.SetText(st.Negative)
	})

	doUndo := func() {
		if _, err := sess.Undo(); err != nil {
			status.SetText("Nothing to undo.")
		}
		refreshHistoryButtons()
	}
	doRedo := func() {
		if _, err := sess.Redo(); err != nil {
			status.SetText("Nothing to redo.")
		}
		refreshHistoryButtons()
	}
	undoBtn = widget.NewButton("Undo", doUndo)
	redoBtn = widget.NewButton("Redo", doRedo)
	refreshHistoryButtons()

	// Batch list
	countLabel := widget.NewLabel(sess.Batch.CountLabel())
	selected := -1
	var batchList *widget.List
	batchList = widget.NewList(
		func() int { return sess.Batch.Len() },
		func() fyne.CanvasObject {
			lbl := widget.NewLabel("")
			lbl.Truncation = fyne.TextTruncateEllipsis
			return lbl
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			entry, err := sess.Batch.At(int(i))
			if err != nil {
				entry = ""
			}
			o.(*widget.Label).SetText(entry)
		},
	)
	batchList.OnSelected = func(id widget.ListItemID) { selected = int(id) }
	batchList.OnUnselected = func(widget.ListItemID) { selected = -1 }
	refreshBatch := func(sel int) {
		countLabel.SetText(sess.Batch.CountLabel())
		batchList.Refresh()
		if sel >= 0 && sel < sess.Batch.Len() {
			batchList.Select(widget.ListItemID(sel))
		} else {
			batchList.UnselectAll()
			selected = -1
		}
	}
	requireSelection := func(action string) bool {
		if selected < 0 || selected >= sess.Batch.Len() {
			dialog.ShowInformation(action, "Select a batch entry first.", w)
			return false
		}
		return true
	}

	addBtn := widget.NewButton("Add to Batch", func() {
		i, err := sess.AddToBatch()
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			dialog.ShowInformation("Add to Batch", "The prompt is empty.", w)
			return
		}
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		refreshBatch(i)
		status.SetText("Added entry to batch.")
	})
	loadEntryBtn := widget.NewButton("Load", func() {
		if !requireSelection("Load Entry") {
			return
		}
		st, err := sess.LoadEntry(selected)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		applying = true
		topEntry.SetText(st.Top)
		middleEntry.SetText(st.Middle)
		bottomEntry.SetText(st.Bottom)
		applying = false
		refreshHistoryButtons()
	})
	editEntryBtn := widget.NewButton("Edit", func() {
		if !requireSelection("Edit Entry") {
			return
		}
		idx := selected
		entry, err := sess.Batch.At(idx)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		parts := batch.Split(entry)
		te, me, be := widget.NewEntry(), widget.NewEntry(), widget.NewEntry()
		te.SetText(parts[0])
		me.SetText(parts[1])
		be.SetText(parts[2])
		form := dialog.NewForm("Edit Entry", "Save", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Top", te),
			widget.NewFormItem("Middle", me),
			widget.NewFormItem("Bottom", be),
		}, func(ok bool) {
			if !ok {
				return
			}
			if err := sess.Batch.Edit(idx, te.Text, me.Text, be.Text); err != nil {
				if errors.Is(err, batch.ErrEditDiscarded) {
					dialog.ShowInformation("Edit Entry", "An entry can't be empty; the edit was discarded.", w)
					return
				}
				dialog.ShowError(err, w)
				return
			}
			refreshBatch(idx)
		}, w)
		form.Resize(fyne.NewSize(640, 260))
		form.Show()
	})
	removeBtn := widget.NewButton("Remove", func() {
		if !requireSelection("Remove Entry") {
			return
		}
		if err := sess.Batch.Remove(selected); err != nil {
			dialog.ShowError(err, w)
			return
		}
		refreshBatch(-1)
	})
	move := func(delta int) {
		if !requireSelection("Move Entry") {
			return
		}
		to, err := sess.Batch.Move(selected, delta)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		refreshBatch(to)
	}
	upBtn := widget.NewButton("Up", func() { move(-1) })
	downBtn := widget.NewButton("Down", func() { move(+1) })
	copyBtn := widget.NewButton("Copy", func() {
		if !requireSelection("Copy Entry") {
			return
		}
		entry, _ := sess.Batch.At(selected)
		if err := shell.Copy(entry); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Copied entry to clipboard.")
	})
	clearBtn := widget.NewButton("Clear", func() {
		if sess.Batch.Len() == 0 {
			return
		}
		dialog.ShowConfirm("Clear Batch", "Remove all entries from the batch?", func(ok bool) {
			if ok && sess.Batch.Clear(func() bool { return true }) {
				refreshBatch(-1)
			}
		}, w)
	})
	exportBtn := widget.NewButton("Export", func() {
		p, err := sess.ExportBatch()
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				dialog.ShowInformation("Export", "The batch is empty.", w)
				return
			}
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Batch exported to " + p)
	})
	revealBtn := widget.NewButton("Open File Location", func() {
		p, err := sess.ScratchPath()
		if err == nil {
			err = shell.Reveal(p)
		}
		if err != nil {
			dialog.ShowError(err, w)
		}
	})
	editScratchBtn := widget.NewButton("Edit Scratch File", func() {
		p, err := sess.ScratchPath()
		if err == nil {
			err = shell.Open(p)
		}
		if err != nil {
			dialog.ShowError(err, w)
		}
	})
	exportAsBtn := widget.NewButton("Export As…", func() {
		if sess.Batch.Len() == 0 {
			dialog.ShowInformation("Export As", "The batch is empty.", w)
			return
		}
		d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			out := uc.URI().Path()
			_ = uc.Close()
			opt := export.PDFOptions{Title: "Prompt Batch", Negative: sess.State().Negative, ShowParts: true}
			if err := export.Write(out, sess.Batch.Entries(), opt); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported batch to " + out)
		}, w)
		d.SetFileName("prompts.pdf")
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf", ".txt"}))
		setLocation(d, sess.StartDir())
		d.Show()
	})

	// Templates
	saveWithChoice := func(path string) {
		if !strings.EqualFold(filepath.Ext(path), storage.TemplateExt) {
			path += storage.TemplateExt
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		images := storage.FindRelatedMedia(filepath.Dir(path), stem).Images()
		save := func(choice string) {
			doc, err := sess.SaveTemplate(path, func([]string) string { return choice })
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			msg := "Saved " + filepath.Base(path)
			if doc.DefaultImage != "" {
				msg += " (default image " + doc.DefaultImage + ")"
			}
			status.SetText(msg)
			w.SetTitle(appTitle + " - " + filepath.Base(path))
		}
		if len(images) > 1 {
			showImageChooser(w, thumbs, images, save)
			return
		}
		save("")
	}
	saveTemplateBtn := widget.NewButton("Save Template…", func() {
		d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			p := uc.URI().Path()
			_ = uc.Close()
			saveWithChoice(p)
		}, w)
		dir, name := sess.SuggestSavePath()
		d.SetFileName(name)
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{storage.TemplateExt}))
		setLocation(d, dir)
		d.Show()
	})
	loadTemplate := func(p string) {
		if _, err := sess.LoadTemplate(p); err != nil {
			dialog.ShowError(err, w)
			return
		}
		refreshHistoryButtons()
		status.SetText("Loaded " + filepath.Base(p))
		w.SetTitle(appTitle + " - " + filepath.Base(p))
	}
	loadTemplateBtn := widget.NewButton("Load Template…", func() {
		d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			p := rc.URI().Path()
			_ = rc.Close()
			loadTemplate(p)
		}, w)
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{storage.TemplateExt}))
		setLocation(d, sess.StartDir())
		d.Show()
	})

	br := &browser{app: fyneApp, parent: w, sess: sess, thumbs: thumbs, prefs: prefs, load: loadTemplate, status: status, log: l}
	browseBtn := widget.NewButton("Browse Templates…", br.open)

	fields := container.NewVBox(
		widget.NewLabel("Top"), topEntry,
		widget.NewLabel("Middle"), middleEntry,
		widget.NewLabel("Bottom"), bottomEntry,
		widget.NewLabel("Negative"), negEntry,
		container.NewHBox(undoBtn, redoBtn, addBtn),
		container.NewHBox(saveTemplateBtn, loadTemplateBtn, browseBtn),
	)
	batchPane := container.NewBorder(
		container.NewVBox(countLabel, widget.NewSeparator()),
		container.NewVBox(
			container.NewHBox(loadEntryBtn, editEntryBtn, removeBtn, upBtn, downBtn, copyBtn, clearBtn),
			container.NewHBox(exportBtn, exportAsBtn, revealBtn, editScratchBtn),
		),
		nil, nil, batchList,
	)
	split := container.NewHSplit(container.NewVScroll(fields), batchPane)
	split.Offset = 0.5
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))

	// Menus
	rebuildItem := fyne.NewMenuItem("Rebuild Catalog", func() {
		if cat == nil {
			dialog.ShowInformation("Rebuild Catalog", "The catalog is unavailable.", w)
			return
		}
		folder := br.folder
		if folder == "" {
			folder = sess.StartDir()
		}
		status.SetText("Rebuilding catalog…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			st, err := cat.Rebuild(ctx, folder, cfg.Catalog.Workers)
			var published int
			if err == nil && cfg.Catalog.PGDSN != "" {
				published, err = backend.PublishFolder(ctx, cfg.Catalog.PGDSN, cat, folder)
			}
			fyne.Do(func() {
				if err != nil {
					l.Error("rebuild catalog failed", slog.Any("err", err))
					dialog.ShowError(err, w)
					status.SetText("Rebuild failed.")
					return
				}
				msg := fmt.Sprintf("Catalog rebuilt: %d templates, %d skipped.", st.Indexed, st.Skipped)
				if cfg.Catalog.PGDSN != "" {
					msg += fmt.Sprintf(" %d published.", published)
				}
				status.SetText(msg)
			})
		}()
	})
	searchItem := fyne.NewMenuItem("Search Catalog…", func() {
		if cat == nil {
			dialog.ShowInformation("Search Catalog", "The catalog is unavailable.", w)
			return
		}
		showCatalogSearch(w, cat, loadTemplate, l)
	})
	quitApp := func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := sess.Close(); err != nil {
			l.Warn("saving settings failed", slog.Any("err", err))
		}
		if cat != nil {
			_ = cat.Close()
		}
		fyneApp.Quit()
	}
	confirmQuit := func() {
		if !cfg.General.ConfirmQuit {
			quitApp()
			return
		}
		dialog.ShowConfirm("Quit", "Do you really want to quit?", func(ok bool) {
			if ok {
				quitApp()
			}
		}, w)
	}
	undoItem := fyne.NewMenuItem("Undo", doUndo)
	redoItem := fyne.NewMenuItem("Redo", doRedo)
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierAlt}
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierAlt}
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save Template…", saveTemplateBtn.OnTapped),
		fyne.NewMenuItem("Load Template…", loadTemplateBtn.OnTapped),
		fyne.NewMenuItem("Browse Templates…", br.open),
		fyne.NewMenuItemSeparator(),
		rebuildItem, searchItem,
	)
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem)
	batchMenu := fyne.NewMenu("Batch",
		fyne.NewMenuItem("Add Current Prompt", addBtn.OnTapped),
		fyne.NewMenuItem("Export", exportBtn.OnTapped),
		fyne.NewMenuItem("Export As…", exportAsBtn.OnTapped),
		fyne.NewMenuItem("Clear…", clearBtn.OnTapped),
	)
	aboutMenu := fyne.NewMenu("Help", fyne.NewMenuItem("About", func() {
		dialog.ShowInformation("About", appTitle+" "+version.String(), w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, batchMenu, aboutMenu))
	w.Canvas().AddShortcut(undoItem.Shortcut, func(fyne.Shortcut) { doUndo() })
	w.Canvas().AddShortcut(redoItem.Shortcut, func(fyne.Shortcut) { doRedo() })

	w.SetCloseIntercept(confirmQuit)
	w.SetMaster()

	if opts.Folder != "" {
		br.openFolder(opts.Folder)
	}
	w.ShowAndRun()
	return nil
}

// variantTheme pins the default theme to one variant.
type variantTheme struct {
	fyne.Theme
	variant fyne.ThemeVariant
}

func (t variantTheme) Color(n fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.Theme.Color(n, t.variant)
}

// applyTheme honours general.theme; "system" follows the OS.
func applyTheme(a fyne.App, name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		a.Settings().SetTheme(variantTheme{Theme: theme.DefaultTheme(), variant: theme.VariantDark})
	case "light":
		a.Settings().SetTheme(variantTheme{Theme: theme.DefaultTheme(), variant: theme.VariantLight})
	}
}

// setLocation points a file dialog at dir when it exists.
func setLocation(d *dialog.FileDialog, dir string) {
	if dir == "" {
		return
	}
	if lister, err := fstorage.ListerForURI(fstorage.NewFileURI(dir)); err == nil {
		d.SetLocation(lister)
	}
}

// thumbImage loads a thumbnail into img in the background.
func thumbImage(img *canvas.Image, src Thumbnailer, path string, box thumbnail.Size, l *slog.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b, err := thumbBytes(ctx, src, path, box)
		fyne.Do(func() {
			if err != nil {
				l.Debug("thumbnail failed", slog.String("path", path), slog.Any("err", err))
				img.Resource = nil
			} else {
				img.Resource = fyne.NewStaticResource(filepath.Base(path), b)
			}
			img.Refresh()
		})
	}()
}

// showImageChooser asks which of images becomes the template's default
// image. Cancelling saves without a default.
func showImageChooser(w fyne.Window, src Thumbnailer, images []string, done func(choice string)) {
	l := applog.WithComponent("ui")
	choice := ""
	chosen := widget.NewLabel("No image selected")
	grid := container.NewGridWrap(fyne.NewSize(float32(thumbnail.Chooser.W)+10, float32(thumbnail.Chooser.H)+50))
	for _, p := range images {
		img := canvas.NewImageFromResource(nil)
		img.FillMode = canvas.ImageFillContain
		img.SetMinSize(fyne.NewSize(float32(thumbnail.Chooser.W), float32(thumbnail.Chooser.H)))
		thumbImage(img, src, p, thumbnail.Chooser, l)
		name := filepath.Base(p)
		grid.Add(container.NewBorder(nil, widget.NewButton(name, func() {
			choice = p
			chosen.SetText("Selected: " + name)
		}), nil, nil, img))
	}
	content := container.NewBorder(chosen, nil, nil, nil, container.NewVScroll(grid))
	d := dialog.NewCustomConfirm(chooserTitle(len(images)), "Save", "No Default", content, func(ok bool) {
		if !ok {
			choice = ""
		}
		done(choice)
	}, w)
	d.Resize(fyne.NewSize(700, 500))
	d.Show()
}

// showCatalogSearch runs full-text searches against the catalog.
func showCatalogSearch(w fyne.Window, cat *catalog.Catalog, load func(string), l *slog.Logger) {
	var results []catalog.Result
	list := widget.NewList(
		func() int { return len(results) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			r := results[i]
			text := r.Name
			if r.Snippet != "" {
				text += "  " + r.Snippet
			}
			o.(*widget.Label).SetText(text)
		},
	)
	query := widget.NewEntry()
	query.SetPlaceHolder("Search prompt text")
	var d dialog.Dialog
	list.OnSelected = func(id widget.ListItemID) {
		p := results[id].Path
		d.Hide()
		load(p)
	}
	query.OnSubmitted = func(text string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			res, err := cat.Search(ctx, catalog.Query{Text: text, Limit: 200})
			fyne.Do(func() {
				if err != nil {
					l.Error("catalog search failed", slog.Any("err", err))
					dialog.ShowError(err, w)
					return
				}
				results = res
				list.UnselectAll()
				list.Refresh()
			})
		}()
	}
	d = dialog.NewCustom("Search Catalog", "Close", container.NewBorder(query, nil, nil, nil, list), w)
	d.Resize(fyne.NewSize(700, 500))
	d.Show()
}

// browser is the template browser window.
type browser struct {
	app    fyne.App
	parent fyne.Window
	sess   *session.Session
	thumbs Thumbnailer
	prefs  fyne.Preferences
	load   func(path string)
	status *widget.Label
	log    *slog.Logger

	win         fyne.Window
	folder      string
	items       []TemplateItem
	current     int
	folderLabel *widget.Label
	caption     *widget.Label
	preview     *canvas.Image
	tplList     *widget.List
	mediaList   *widget.List
	mediaSel    int
}

// open shows the browser on the default folder, asking for one when none is set.
func (b *browser) open() {
	if dir := b.sess.BrowseDir(); dir != "" {
		b.openFolder(dir)
		return
	}
	b.pickFolder(b.parent)
}

func (b *browser) pickFolder(parent fyne.Window) {
	d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, parent)
			return
		}
		if uri == nil {
			return
		}
		b.openFolder(uri.Path())
	}, parent)
	if lister, err := fstorage.ListerForURI(fstorage.NewFileURI(b.sess.StartDir())); err == nil {
		d.SetLocation(lister)
	}
	d.Show()
}

func (b *browser) openFolder(dir string) {
	items, err := LoadFolder(dir)
	if err != nil {
		dialog.ShowError(err, b.parent)
		return
	}
	b.folder, b.items, b.current, b.mediaSel = dir, items, -1, -1
	b.sess.RememberDir(dir)
	addRecentFolder(b.prefs, dir)
	if b.win == nil {
		b.build()
	}
	b.folderLabel.SetText(dir)
	b.caption.SetText(fmt.Sprintf("%d templates", len(items)))
	b.preview.Resource = nil
	b.preview.Refresh()
	b.tplList.UnselectAll()
	b.tplList.Refresh()
	b.mediaList.Refresh()
	b.win.Show()
	b.win.RequestFocus()
}

func (b *browser) selectedItem() (*TemplateItem, bool) {
	if b.current < 0 || b.current >= len(b.items) {
		return nil, false
	}
	return &b.items[b.current], true
}

func (b *browser) showPreview(path, caption string) {
	b.caption.SetText(caption)
	if path == "" || !domain.IsImage(path) {
		b.preview.Resource = nil
		b.preview.Refresh()
		return
	}
	thumbImage(b.preview, b.thumbs, path, thumbnail.Browser, b.log)
}

func (b *browser) build() {
	w := b.app.NewWindow("Template Browser")
	b.win = w
	w.Resize(fyne.NewSize(1280, 640))
	w.SetCloseIntercept(func() {
		w.Hide()
	})

	b.folderLabel = widget.NewLabel("")
	b.caption = widget.NewLabel("")
	b.preview = canvas.NewImageFromResource(nil)
	b.preview.FillMode = canvas.ImageFillContain
	b.preview.SetMinSize(fyne.NewSize(float32(thumbnail.Browser.W), float32(thumbnail.Browser.H)))

	b.tplList = widget.NewList(
		func() int { return len(b.items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(b.items[i].Name) },
	)
	b.mediaList = widget.NewList(
		func() int {
			if it, ok := b.selectedItem(); ok {
				return len(it.Media)
			}
			return 0
		},
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if it, ok := b.selectedItem(); ok && int(i) < len(it.Media) {
				o.(*widget.Label).SetText(it.Media[i].Label())
			}
		},
	)
	b.tplList.OnSelected = func(id widget.ListItemID) {
		b.current, b.mediaSel = int(id), -1
		it := b.items[id]
		b.mediaList.UnselectAll()
		b.mediaList.Refresh()
		b.showPreview(it.Preview, it.PreviewCaption())
	}
	b.mediaList.OnSelected = func(id widget.ListItemID) {
		it, ok := b.selectedItem()
		if !ok || int(id) >= len(it.Media) {
			return
		}
		b.mediaSel = int(id)
		m := it.Media[id]
		b.showPreview(m.Path, m.Label())
	}

	selectedMedia := func() (MediaItem, bool) {
		it, ok := b.selectedItem()
		if !ok || b.mediaSel < 0 || b.mediaSel >= len(it.Media) {
			dialog.ShowInformation("Media", "Select a media file first.", w)
			return MediaItem{}, false
		}
		return it.Media[b.mediaSel], true
	}
	loadBtn := widget.NewButton("Load Template", func() {
		it, ok := b.selectedItem()
		if !ok {
			dialog.ShowInformation("Load Template", "Select a template first.", w)
			return
		}
		b.load(it.Path)
	})
	setDefaultImgBtn := widget.NewButton("Set as Default Image", func() {
		m, ok := selectedMedia()
		if !ok {
			return
		}
		if !domain.IsImage(m.Path) {
			dialog.ShowInformation("Default Image", "Only images can be the default preview.", w)
			return
		}
		it, _ := b.selectedItem()
		if err := storage.SetDefaultImage(it.Path, m.Name); err != nil {
			dialog.ShowError(err, w)
			return
		}
		b.items[b.current] = LoadTemplateItem(it.Path)
		b.mediaList.Refresh()
		b.showPreview(b.items[b.current].Preview, b.items[b.current].PreviewCaption())
	})
	openMediaBtn := widget.NewButton("Open Media", func() {
		if m, ok := selectedMedia(); ok {
			if err := shell.Open(m.Path); err != nil {
				dialog.ShowError(err, w)
			}
		}
	})
	revealBtn := widget.NewButton("Show in Folder", func() {
		if m, ok := selectedMedia(); ok {
			if err := shell.Reveal(m.Path); err != nil {
				dialog.ShowError(err, w)
			}
			return
		}
	})
	changeBtn := widget.NewButton("Change Folder…", func() { b.pickFolder(w) })
	recentSel := widget.NewSelect(loadRecentFolders(b.prefs), func(s string) {
		if s != "" && s != b.folder {
			b.openFolder(s)
		}
	})
	recentSel.PlaceHolder = "Recent folders"
	setDefaultDirBtn := widget.NewButton("Set Folder as Default", func() {
		if err := b.sess.SetDefaultTemplateDir(b.folder); err != nil {
			dialog.ShowError(err, w)
			return
		}
		b.status.SetText("Default template folder: " + b.folder)
	})
	clearDefaultDirBtn := widget.NewButton("Clear Default Folder", func() {
		if err := b.sess.SetDefaultTemplateDir(""); err != nil {
			dialog.ShowError(err, w)
			return
		}
		b.status.SetText("Default template folder cleared.")
	})
	refreshBtn := widget.NewButton("Refresh", func() { b.openFolder(b.folder) })

	header := container.NewBorder(nil, nil, nil,
		container.NewHBox(recentSel, changeBtn, refreshBtn, setDefaultDirBtn, clearDefaultDirBtn),
		b.folderLabel)
	lists := container.NewHSplit(
		container.NewBorder(widget.NewLabel("Templates"), loadBtn, nil, nil, b.tplList),
		container.NewBorder(widget.NewLabel("Related media"),
			container.NewHBox(setDefaultImgBtn, openMediaBtn, revealBtn), nil, nil, b.mediaList),
	)
	previewPane := container.NewBorder(nil, b.caption, nil, nil, b.preview)
	body := container.NewHSplit(lists, previewPane)
	body.Offset = 0.4
	w.SetContent(container.NewBorder(header, nil, nil, nil, body))
}

const recentPrefsKey = "recent.folders"
const recentMax = 10

func loadRecentFolders(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if fi, err := os.Stat(s); err == nil && fi.IsDir() {
			out = append(out, s)
		}
	}
	return out
}

func addRecentFolder(p fyne.Preferences, dir string) {
	if strings.TrimSpace(dir) == "" {
		return
	}
	abs, _ := filepath.Abs(dir)
	out := []string{abs}
	for _, s := range loadRecentFolders(p) {
		// case-insensitive on Windows
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
