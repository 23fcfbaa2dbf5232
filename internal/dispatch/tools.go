package dispatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Domains.
const (
	DomainImage   = "image"
	DomainMedia   = "media"
	DomainPDF     = "pdf"
	DomainCapture = "capture"
)

type paramSpec struct {
	name     string
	optional bool
	check    func(value string) error
}

type toolSpec struct {
	// minFiles is the number of uploaded files the tool needs. Capture
	// tools work from a URL and take none.
	minFiles int
	params   []paramSpec
}

var timecodeRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`)

func checkTimecode(v string) error {
	if !timecodeRe.MatchString(v) {
		return fmt.Errorf("must be a timecode (HH:MM:SS or HH:MM:SS.mmm)")
	}
	return nil
}

func checkIntIn(allowed ...int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("must be an integer")
		}
		for _, a := range allowed {
			if n == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", allowed)
	}
}

func checkNonNegInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func checkPositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func checkPositiveFloat(v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("must be a number greater than zero")
	}
	return nil
}

func checkIntRange(min, max int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < min || n > max {
			return fmt.Errorf("must be an integer between %d and %d", min, max)
		}
		return nil
	}
}

func checkOneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
	}
}

func checkNonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func checkURL(v string) error {
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

var imageFormats = checkOneOf("jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp", "ico", "avif")
var mediaFormats = checkOneOf("mp4", "webm", "mkv", "mov", "avi", "mp3", "wav", "ogg", "opus", "flac", "aac", "m4a")
var audioFormats = checkOneOf("mp3", "wav", "ogg", "opus", "flac", "aac", "m4a")

// catalog is the fixed tool registry: one entry per (domain, tool). Adding
// a tool means adding a row here and teaching its adapter the tool name.
var catalog = map[string]map[string]toolSpec{
	DomainImage: {
		"convert": {minFiles: 1, params: []paramSpec{
			{name: "format", check: imageFormats},
		}},
		"resize": {minFiles: 1, params: []paramSpec{
			{name: "width", check: checkNonNegInt},
			{name: "height", check: checkNonNegInt},
		}},
		"crop": {minFiles: 1, params: []paramSpec{
			{name: "x", check: checkNonNegInt},
			{name: "y", check: checkNonNegInt},
			{name: "width", check: checkPositiveInt},
			{name: "height", check: checkPositiveInt},
		}},
		"rotate": {minFiles: 1, params: []paramSpec{
			{name: "angle", check: checkIntIn(90, 180, 270)},
		}},
		"flip": {minFiles: 1, params: []paramSpec{
			{name: "direction", check: checkOneOf("horizontal", "vertical")},
		}},
		"compress": {minFiles: 1, params: []paramSpec{
			{name: "quality", optional: true, check: checkIntRange(1, 100)},
		}},
		"watermark": {minFiles: 1, params: []paramSpec{
			{name: "text", check: checkNonEmpty},
		}},
		"upscale": {minFiles: 1, params: []paramSpec{
			{name: "factor", check: checkIntIn(2, 4)},
		}},
	},

	DomainMedia: {
		"convert": {minFiles: 1, params: []paramSpec{
			{name: "format", check: mediaFormats},
		}},
		"trim": {minFiles: 1, params: []paramSpec{
			{name: "start", check: checkTimecode},
			{name: "duration", check: checkTimecode},
		}},
		"speed": {minFiles: 1, params: []paramSpec{
			{name: "factor", check: checkPositiveFloat},
		}},
		"normalize": {minFiles: 1},
		"compress": {minFiles: 1, params: []paramSpec{
			{name: "preset", optional: true, check: checkOneOf("quality", "balanced", "size")},
		}},
		"extract-audio": {minFiles: 1, params: []paramSpec{
			{name: "format", optional: true, check: audioFormats},
		}},
		"gif":      {minFiles: 1},
		"waveform": {minFiles: 1},
	},

	DomainPDF: {
		"merge": {minFiles: 2},
		"extract-page": {minFiles: 1, params: []paramSpec{
			{name: "page", check: checkPositiveInt},
		}},
		"compress":     {minFiles: 1},
		"extract-text": {minFiles: 1},
		"to-images":    {minFiles: 1},
		"protect": {minFiles: 1, params: []paramSpec{
			{name: "password", optional: true, check: checkNonEmpty},
		}},
	},

	DomainCapture: {
		"screenshot": {params: []paramSpec{
			{name: "url", check: checkURL},
			{name: "full_page", optional: true, check: checkOneOf("true", "false")},
		}},
		"pdf": {params: []paramSpec{
			{name: "url", check: checkURL},
		}},
		"media": {params: []paramSpec{
			{name: "url", check: checkURL},
		}},
	},
}

// knownDomain reports whether a domain exists in the catalog.
func knownDomain(domain string) bool {
	_, ok := catalog[domain]
	return ok
}
