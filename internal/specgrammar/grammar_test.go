package specgrammar

import "testing"

func TestParseFileCopyIncludeSections(t *testing.T) {
	source := "file: \"greeting.txt\" ```\nhello world\n```\n" +
		"copy: \"fixtures/**/*.conf\"\n" +
		"include: \"common.clibate\"\n"

	doc, err := Parse("t.clibate", source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(doc.Sections))
	}

	file := doc.Sections[0].File
	if file == nil {
		t.Fatalf("expected a file section")
	}
	if file.UnquotedName() != "greeting.txt" {
		t.Fatalf("got name %q", file.UnquotedName())
	}
	if file.Contents() != "hello world" {
		t.Fatalf("got contents %q", file.Contents())
	}

	copySec := doc.Sections[1].Copy
	if copySec == nil || copySec.UnquotedPattern() != "fixtures/**/*.conf" {
		t.Fatalf("got copy section %+v", copySec)
	}

	include := doc.Sections[2].Include
	if include == nil || include.UnquotedPath() != "common.clibate" {
		t.Fatalf("got include section %+v", include)
	}
}

func TestParseTestSectionWithAllClauses(t *testing.T) {
	source := "test: \"renames the chain\" {\n" +
		"    command: \"mytool run\"\n" +
		"    edits \"target.txt\": ```\n" +
		"DIFF 'old'\n" +
		"~ 'new'\n" +
		"```\n" +
		"    success: ```\n" +
		"ok\n" +
		"```\n" +
		"}\n"

	doc, err := Parse("t.clibate", source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(doc.Sections))
	}

	test := doc.Sections[0].Test
	if test == nil {
		t.Fatalf("expected a test section")
	}
	if test.UnquotedName() != "renames the chain" {
		t.Fatalf("got name %q", test.UnquotedName())
	}
	if test.Command() != "mytool run" {
		t.Fatalf("got command %q", test.Command())
	}
	batches := test.EditBatches()
	if len(batches) != 1 {
		t.Fatalf("got %d edit batches, want 1", len(batches))
	}
	if batches[0].UnquotedFile() != "target.txt" {
		t.Fatalf("got target file %q", batches[0].UnquotedFile())
	}
	if batches[0].Persistent {
		t.Fatalf("expected a non-persistent batch by default")
	}
	if batches[0].Source() != "DIFF 'old'\n~ 'new'" {
		t.Fatalf("got edits %q", batches[0].Source())
	}
	success, ok := test.Success()
	if !ok || success != "ok" {
		t.Fatalf("got success %q ok=%v", success, ok)
	}
	if _, ok := test.Failure(); ok {
		t.Fatalf("expected no failure clause")
	}
}

func TestParsePersistentEditsClauseSetsFlag(t *testing.T) {
	source := "test: \"baseline drift\" {\n" +
		"    edits persistent \"target.txt\": ```\n" +
		"REMOVE old\n" +
		"```\n" +
		"}\n"

	doc, err := Parse("t.clibate", source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	batches := doc.Sections[0].Test.EditBatches()
	if len(batches) != 1 || !batches[0].Persistent {
		t.Fatalf("expected a persistent edit batch, got %+v", batches)
	}
}

func TestParseRejectsUnknownSectionKeyword(t *testing.T) {
	_, err := Parse("t.clibate", "bogus: \"x\"\n")
	if err == nil {
		t.Fatalf("expected a parse error for an unrecognized section keyword")
	}
}

func TestStripRawBlockTrimsFencesAndBlankLines(t *testing.T) {
	got := StripRawBlock("```\nfoo\nbar\n```")
	if got != "foo\nbar" {
		t.Fatalf("got %q", got)
	}
}
