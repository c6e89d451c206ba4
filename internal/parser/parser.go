package parser

import (
	"encoding/json"
	stderrors "errors" // Standard errors package
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcncl/jsontab/internal/errors" // Custom errors package
	"github.com/mcncl/jsontab/internal/models"
)

// DefaultMaxDepth bounds container nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 1000

// Options tunes the parser.
type Options struct {
	// MaxDepth is the deepest container nesting accepted. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Parse converts JSON data from an io.Reader into a Document
func Parse(reader io.Reader) (models.Document, error) {
	return ParseWithOptions(reader, Options{})
}

// ParseWithOptions converts JSON data from an io.Reader into a Document.
// Object members keep their source order, duplicates included.
func ParseWithOptions(reader io.Reader, opts Options) (models.Document, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	decoder := json.NewDecoder(reader)
	decoder.UseNumber() // keep number literals verbatim

	b := &treeBuilder{dec: decoder, maxDepth: opts.MaxDepth}

	tok, err := decoder.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) { // nothing was decoded at all
			return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return models.Document{}, decodeError(err)
	}

	root, err := b.value(tok, 1)
	if err != nil {
		return models.Document{}, err
	}

	// Anything other than EOF after the root means a second value or garbage.
	if _, err := decoder.Token(); err == nil {
		return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	} else if !stderrors.Is(err, io.EOF) {
		return models.Document{}, errors.NewParsingError("invalid trailing data after first JSON value", decodeError(err))
	}

	return models.Document{Root: root}, nil
}

// treeBuilder assembles a models.JSONValue from the decoder's token stream.
type treeBuilder struct {
	dec      *json.Decoder
	maxDepth int
}

// next reads a token inside a container, where EOF is always premature.
func (b *treeBuilder) next() (json.Token, error) {
	tok, err := b.dec.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, decodeError(err)
	}
	return tok, nil
}

func (b *treeBuilder) value(tok json.Token, depth int) (models.JSONValue, error) {
	switch t := tok.(type) {
	case json.Delim:
		if depth > b.maxDepth {
			return models.JSONValue{}, errors.NewParsingError(
				fmt.Sprintf("nesting deeper than %d levels", b.maxDepth),
				errors.ErrTooDeep,
			)
		}
		switch t {
		case '{':
			return b.object(depth)
		case '[':
			return b.array(depth)
		default:
			return models.JSONValue{}, errors.NewParsingError(fmt.Sprintf("unexpected delimiter %q", rune(t)), errors.ErrInvalidJSON)
		}
	case string:
		return models.String(t), nil
	case json.Number:
		return models.Number(t.String()), nil
	case bool:
		return models.Bool(t), nil
	case nil:
		return models.Null(), nil
	default:
		return models.JSONValue{}, errors.NewParsingError(fmt.Sprintf("unexpected token of type %T", tok), errors.ErrInvalidJSON)
	}
}

func (b *treeBuilder) object(depth int) (models.JSONValue, error) {
	var members []models.Member
	for b.dec.More() {
		keyTok, err := b.next()
		if err != nil {
			return models.JSONValue{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return models.JSONValue{}, errors.NewParsingError("object key is not a string", errors.ErrInvalidJSON)
		}
		valTok, err := b.next()
		if err != nil {
			return models.JSONValue{}, err
		}
		val, err := b.value(valTok, depth+1)
		if err != nil {
			return models.JSONValue{}, err
		}
		members = append(members, models.M(key, val))
	}
	// closing '}'
	if _, err := b.next(); err != nil {
		return models.JSONValue{}, err
	}
	return models.Object(members...), nil
}

func (b *treeBuilder) array(depth int) (models.JSONValue, error) {
	var elements []models.JSONValue
	for b.dec.More() {
		tok, err := b.next()
		if err != nil {
			return models.JSONValue{}, err
		}
		el, err := b.value(tok, depth+1)
		if err != nil {
			return models.JSONValue{}, err
		}
		elements = append(elements, el)
	}
	// closing ']'
	if _, err := b.next(); err != nil {
		return models.JSONValue{}, err
	}
	return models.Array(elements...), nil
}

// decodeError maps decoder failures onto parsing AppErrors.
func decodeError(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxError.Offset, syntaxError.Error()),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Document, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Document, error) {
	return ParseFileWithOptions(filePath, Options{})
}

// ParseFileWithOptions parses JSON from a file path using opts
func ParseFileWithOptions(filePath string, opts Options) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.IsDir() {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("'%s' is a directory", filePath),
			errors.ErrInvalidFilePath,
		)
	}
	if stat.Size() == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return ParseWithOptions(file, opts)
}
