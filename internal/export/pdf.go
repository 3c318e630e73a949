/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"promptmanager/internal/batch"
	"promptmanager/internal/version"
)

// PDFOptions controls the prompt sheet layout. Units are points.
//
// Entries are printed in order, numbered from 1. With ShowParts each entry
// is broken into its top, middle and bottom parts; otherwise the joined
// line is printed as is. Text uses built-in Helvetica, so characters
// outside cp1252 are replaced.
type PDFOptions struct {
	Title     string
	Negative  string // printed once under the entries when set
	ShowParts bool
	PageSize  string // "A4" (default) or "Letter"
	FontSize  float64
	Generated time.Time // zero means now
}

// WritePDF renders entries as a PDF prompt sheet at path.
func WritePDF(path string, entries []string, opt PDFOptions) error {
	if len(entries) == 0 {
		return ErrEmptyBatch
	}
	if opt.PageSize == "" {
		opt.PageSize = "A4"
	}
	if opt.FontSize <= 0 {
		opt.FontSize = 10
	}
	if opt.Title == "" {
		opt.Title = "Prompt Batch"
	}
	if opt.Generated.IsZero() {
		opt.Generated = time.Now()
	}

	pdf := gofpdf.New("P", "pt", opt.PageSize, "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("Prompt Manager "+version.String(), true)
	pdf.SetMargins(40, 40, 40)
	pdf.SetAutoPageBreak(true, 40)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-30)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 22, tr(opt.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 14, fmt.Sprintf("%d lines, %s", len(entries), opt.Generated.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	lineH := opt.FontSize * 1.35
	for i, entry := range entries {
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", opt.FontSize)
		pdf.CellFormat(28, lineH, fmt.Sprintf("%d.", i+1), "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", opt.FontSize)
		if !opt.ShowParts {
			pdf.MultiCell(0, lineH, tr(entry), "", "L", false)
		} else {
			left := pdf.GetX()
			parts := batch.Split(entry)
			for j, label := range []string{"Top", "Middle", "Bottom"} {
				part := parts[j]
				if part == "" {
					continue
				}
				pdf.SetX(left)
				pdf.SetFont("Helvetica", "I", opt.FontSize-1)
				pdf.SetTextColor(90, 90, 160)
				pdf.CellFormat(48, lineH, label, "", 0, "L", false, 0, "")
				pdf.SetFont("Helvetica", "", opt.FontSize)
				pdf.SetTextColor(0, 0, 0)
				pdf.MultiCell(0, lineH, tr(part), "", "L", false)
			}
		}
		pdf.Ln(4)
	}

	if opt.Negative != "" {
		pdf.Ln(6)
		pdf.SetFillColor(255, 205, 210)
		pdf.SetFont("Helvetica", "B", opt.FontSize)
		pdf.CellFormat(0, lineH+2, "Negative prompt", "", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", opt.FontSize)
		pdf.MultiCell(0, lineH, tr(batch.Clean(opt.Negative)), "", "L", false)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
