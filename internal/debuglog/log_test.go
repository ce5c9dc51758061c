package debuglog

import (
	"bytes"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
)

func TestPrintfWritesThroughInstalledLogger(t *testing.T) {
	var buf bytes.Buffer
	old := GetLogger()
	defer SetLogger(old)

	SetLogger(log.New(&buf, "[Checkend] ", 0))
	Printf("sent %d notices\n", 3)

	if got := buf.String(); !strings.Contains(got, "[Checkend] sent 3 notices") {
		t.Errorf("unexpected log output: %q", got)
	}
}

func TestConcurrentUse(t *testing.T) {
	old := GetLogger()
	defer SetLogger(old)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetLogger(log.New(io.Discard, "", 0))
		}()
		go func() {
			defer wg.Done()
			Println("concurrent")
		}()
	}
	wg.Wait()
}
