// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenModel is the model whose tokenizer measures text for TrimTokens.
const TokenModel = "gpt-3.5-turbo"

// fallbackCharsPerToken approximates token length when no tokenizer is available.
const fallbackCharsPerToken = 4

type tokenizer struct {
	load func() (*tiktoken.Tiktoken, error)

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

var defaultTokenizer = &tokenizer{
	load: func() (*tiktoken.Tiktoken, error) {
		return tiktoken.EncodingForModel(TokenModel)
	},
}

// TrimTokens cuts text to at most maxTokens tokens. The tokenizer data is
// loaded on first use; if that fails the limit is applied at four
// characters per token.
func TrimTokens(text string, maxTokens int) string {
	return defaultTokenizer.trim(text, maxTokens)
}

func (t *tokenizer) encoding() (*tiktoken.Tiktoken, error) {
	t.once.Do(func() {
		t.enc, t.err = t.load()
		if t.err != nil {
			slog.Warn("tokenizer unavailable, approximating token counts", "model", TokenModel, "err", t.err)
		}
	})
	return t.enc, t.err
}

func (t *tokenizer) trim(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	enc, err := t.encoding()
	if err != nil {
		limit := maxTokens * fallbackCharsPerToken
		if utf8.RuneCountInString(text) <= limit {
			return text
		}
		return string([]rune(text)[:limit])
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	// A cut inside a multi-byte character leaves invalid bytes at the end.
	return strings.ToValidUTF8(enc.Decode(tokens[:maxTokens]), "")
}
