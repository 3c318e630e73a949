/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumbnail decodes template preview images and scales them down to
// fit the browser and chooser boxes.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"promptmanager/internal/domain"
)

// Size is a bounding box in pixels.
type Size struct{ W, H int }

// Boxes used by the template browser preview and the default-image chooser.
var (
	Browser = Size{W: 720, H: 440}
	Chooser = Size{W: 200, H: 150}
)

// ErrNotImage is returned for paths without an image extension, videos
// included.
var ErrNotImage = errors.New("not an image")

// Fit returns the largest size with the source aspect ratio that fits in
// box. Images already inside the box keep their size.
func Fit(srcW, srcH int, box Size) (int, int) {
	if srcW <= 0 || srcH <= 0 || box.W <= 0 || box.H <= 0 {
		return 0, 0
	}
	if srcW <= box.W && srcH <= box.H {
		return srcW, srcH
	}
	w, h := box.W, srcH*box.W/srcW
	if h > box.H {
		w, h = srcW*box.H/srcH, box.H
	}
	return max(w, 1), max(h, 1)
}

// Load decodes the image at path and scales it to fit box.
func Load(path string, box Size) (image.Image, error) {
	if !domain.IsImage(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotImage)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return Scale(src, box), nil
}

// Scale returns src resized to fit box, or src itself if it already fits.
func Scale(src image.Image, box Size) image.Image {
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), box)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Render loads path scaled to box and encodes the result as PNG.
func Render(path string, box Size) ([]byte, error) {
	img, err := Load(path, box)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
