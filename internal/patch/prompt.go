// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patch

import (
	"fmt"
)

// BuildPrompt renders the fix request for a failing source file.
func BuildPrompt(lang, source, errText string) string {
	return fmt.Sprintf(`You are an expert %[1]s debugger. Running the source file below failed with the error shown.
Find the root cause of the error and fix it.

Error output:
%[4]s
%[2]s
%[4]s

Source file:
%[4]s%[1]s
%[3]s
%[4]s

Rules:
1. Do not explain anything.
2. Reply with only the complete corrected file in a single %[4]s%[1]s code block.`,
		lang, errText, source, fence)
}
