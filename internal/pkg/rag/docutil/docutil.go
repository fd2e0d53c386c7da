// Package docutil 提供上传文档的文本提取与目录扫描工具。
package docutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

var (
	// ErrUndecodable 所有候选编码均无法解码。
	ErrUndecodable = errors.New("unable to decode file content")
	// ErrInvalidPDF PDF 无法解析。
	ErrInvalidPDF = errors.New("unable to parse pdf")
)

// candidates 是 UTF-8 之后按顺序尝试的编码。
// x/text 的 korean.EUCKR 按 CP949 解码，CP949 是 EUC-KR 的超集。
var candidates = []struct {
	name string
	enc  encoding.Encoding
}{
	{"cp949", korean.EUCKR},
	{"euc-kr", korean.EUCKR},
	{"latin-1", charmap.ISO8859_1},
}

// DecodeText 依次尝试 UTF-8、CP949、EUC-KR、Latin-1 解码，返回文本与命中的编码名。
func DecodeText(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), "utf-8", nil
	}
	for _, c := range candidates {
		out, err := c.enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), c.name, nil
	}
	return "", "", ErrUndecodable
}

// ExtractPDF 提取 PDF 各页纯文本，页之间以换行分隔。无法解析的页被跳过。
func ExtractPDF(data []byte) (text string, err error) {
	defer func() {
		// ledongthuc/pdf 遇到损坏的交叉引用表会 panic
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

// IsPDF 根据文件扩展名判断是否为 PDF。
func IsPDF(fileName string) bool {
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

// ExtractText 按文件类型提取文本：PDF 走 PDF 解析，其余按文本解码。
func ExtractText(fileName string, data []byte) (string, error) {
	if IsPDF(fileName) {
		return ExtractPDF(data)
	}
	text, _, err := DecodeText(data)
	return text, err
}

// FindFiles 在目录中递归查找匹配扩展名的文件，结果按路径字典序。
// extensions 为空时返回所有普通文件。
func FindFiles(dir string, extensions []string) ([]string, error) {
	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(extMap) == 0 || extMap[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ReadFile 读取文件并提取文本。
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ExtractText(filepath.Base(path), data)
}
