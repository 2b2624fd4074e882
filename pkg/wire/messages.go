package wire

import "google.golang.org/protobuf/encoding/protowire"

// User is the account identity returned by the user endpoint.
type User struct {
	ID    string
	Email string
}

func (u *User) appendWire(b []byte) ([]byte, error) {
	if u.ID == "" {
		return nil, encodeErr("user: id required")
	}
	b = appendString(b, 1, u.ID)
	b = appendString(b, 2, u.Email)
	return b, nil
}

func (u *User) consumeWire(b []byte) error {
	*u = User{}
	return walk("user", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var (
			n   int
			err error
		)
		switch num {
		case 1:
			u.ID, n, err = consumeString("user.id", typ, b)
		case 2:
			u.Email, n, err = consumeString("user.email", typ, b)
		default:
			return -1, nil
		}
		return n, err
	})
}

// Imports lists the batches already uploaded, most recent first.
type Imports struct {
	Files []ImportFile
}

// Latest returns the most recent batch, or nil when nothing was imported yet.
func (i *Imports) Latest() *ImportFile {
	if i == nil || len(i.Files) == 0 {
		return nil
	}
	return &i.Files[0]
}

func (i *Imports) appendWire(b []byte) ([]byte, error) {
	var err error
	for idx := range i.Files {
		if b, err = appendMessage(b, 1, &i.Files[idx]); err != nil {
			return nil, err
		}
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (i *Imports) consumeWire(b []byte) error {
	*i = Imports{}
	return walk("imports", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return -1, nil
		}
		raw, n, err := consumeBytes("imports.files", typ, b)
		if err != nil {
			return 0, err
		}
		var f ImportFile
		if err := f.consumeWire(raw); err != nil {
			return 0, err
		}
		i.Files = append(i.Files, f)
		return n, nil
	})
}

// ImportFile is one uploaded batch as tracked by Wallet.
type ImportFile struct {
	ID       string
	FileName string
}

func (f *ImportFile) appendWire(b []byte) ([]byte, error) {
	if f.ID == "" {
		return nil, encodeErr("import file: id required")
	}
	b = appendString(b, 1, f.ID)
	b = appendString(b, 2, f.FileName)
	return b, nil
}

func (f *ImportFile) consumeWire(b []byte) error {
	*f = ImportFile{}
	return walk("import file", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var (
			n   int
			err error
		)
		switch num {
		case 1:
			f.ID, n, err = consumeString("import_file.id", typ, b)
		case 2:
			f.FileName, n, err = consumeString("import_file.file_name", typ, b)
		default:
			return -1, nil
		}
		return n, err
	})
}

// ImportSettings tells Wallet how to parse a batch it just received.
type ImportSettings struct {
	Columns []ColumnMapping
	Formats []Format
}

// ColumnMapping binds a CSV column index to a Wallet record attribute.
type ColumnMapping struct {
	Field  int32
	Column int32
}

// Format describes the layout of the uploaded file. Only Delimiter, Timezone
// and DatePattern have a known meaning; the numeric slots are sent as the web
// client sends them.
type Format struct {
	Version     int32
	ColumnCount int32
	HeaderLines int32
	Delimiter   string
	Timezone    string
	DateKind    int32
	DatePattern string
}

func (s *ImportSettings) appendWire(b []byte) ([]byte, error) {
	if len(s.Formats) == 0 {
		return nil, encodeErr("import settings: format required")
	}
	var err error
	for idx := range s.Columns {
		if b, err = appendMessage(b, 1, &s.Columns[idx]); err != nil {
			return nil, err
		}
	}
	for idx := range s.Formats {
		if b, err = appendMessage(b, 2, &s.Formats[idx]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *ImportSettings) consumeWire(b []byte) error {
	*s = ImportSettings{}
	return walk("import settings", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			raw, n, err := consumeBytes("import_settings.columns", typ, b)
			if err != nil {
				return 0, err
			}
			var c ColumnMapping
			if err := c.consumeWire(raw); err != nil {
				return 0, err
			}
			s.Columns = append(s.Columns, c)
			return n, nil
		case 2:
			raw, n, err := consumeBytes("import_settings.formats", typ, b)
			if err != nil {
				return 0, err
			}
			var f Format
			if err := f.consumeWire(raw); err != nil {
				return 0, err
			}
			s.Formats = append(s.Formats, f)
			return n, nil
		default:
			return -1, nil
		}
	})
}

func (c *ColumnMapping) appendWire(b []byte) ([]byte, error) {
	if !protowire.Number(c.Field).IsValid() {
		return nil, encodeErr("column mapping: field %d out of range", c.Field)
	}
	if c.Column < 0 {
		return nil, encodeErr("column mapping: negative column %d", c.Column)
	}
	b = appendInt32(b, 1, c.Field)
	b = appendInt32(b, 2, c.Column)
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (c *ColumnMapping) consumeWire(b []byte) error {
	*c = ColumnMapping{}
	return walk("column mapping", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var (
			n   int
			err error
		)
		switch num {
		case 1:
			c.Field, n, err = consumeInt32("column_mapping.field", typ, b)
		case 2:
			c.Column, n, err = consumeInt32("column_mapping.column", typ, b)
		default:
			return -1, nil
		}
		return n, err
	})
}

func (f *Format) appendWire(b []byte) ([]byte, error) {
	switch {
	case f.Delimiter == "":
		return nil, encodeErr("format: delimiter required")
	case f.Timezone == "":
		return nil, encodeErr("format: timezone required")
	case f.DatePattern == "":
		return nil, encodeErr("format: date pattern required")
	}
	b = appendInt32(b, 1, f.Version)
	b = appendInt32(b, 2, f.ColumnCount)
	b = appendInt32(b, 3, f.HeaderLines)
	b = appendString(b, 4, f.Delimiter)
	b = appendString(b, 5, f.Timezone)
	b = appendInt32(b, 6, f.DateKind)
	b = appendString(b, 7, f.DatePattern)
	return b, nil
}

func (f *Format) consumeWire(b []byte) error {
	*f = Format{}
	return walk("format", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var (
			n   int
			err error
		)
		switch num {
		case 1:
			f.Version, n, err = consumeInt32("format.version", typ, b)
		case 2:
			f.ColumnCount, n, err = consumeInt32("format.column_count", typ, b)
		case 3:
			f.HeaderLines, n, err = consumeInt32("format.header_lines", typ, b)
		case 4:
			f.Delimiter, n, err = consumeString("format.delimiter", typ, b)
		case 5:
			f.Timezone, n, err = consumeString("format.timezone", typ, b)
		case 6:
			f.DateKind, n, err = consumeInt32("format.date_kind", typ, b)
		case 7:
			f.DatePattern, n, err = consumeString("format.date_pattern", typ, b)
		default:
			return -1, nil
		}
		return n, err
	})
}
