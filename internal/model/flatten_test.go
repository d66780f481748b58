package model

import "testing"

func TestFlattenTree(t *testing.T) {
	root := buildLoginTree()
	flat := FlattenTree(&root)

	wantUIDs := []string{"root", "0", "1", "email", "submit", "1.1.0", "1.1.1"}
	if len(flat) != len(wantUIDs) {
		t.Fatalf("expected %d nodes, got %d", len(wantUIDs), len(flat))
	}
	for i, want := range wantUIDs {
		if flat[i].UID != want {
			t.Errorf("flat[%d].UID = %q, want %q", i, flat[i].UID, want)
		}
	}

	if flat[4].Path != "View > View > Pressable" {
		t.Errorf("path = %q", flat[4].Path)
	}
	if flat[5].Depth != 3 {
		t.Errorf("depth = %d, want 3", flat[5].Depth)
	}
}

func TestFlattenTree_Nil(t *testing.T) {
	if FlattenTree(nil) != nil {
		t.Error("expected nil for nil root")
	}
}

func TestWalk_PreOrderPaths(t *testing.T) {
	root := buildLoginTree()
	var paths []string
	Walk(&root, func(n *Node, path []int) {
		paths = append(paths, PathString(path))
	})
	want := []string{"", "0", "1", "1.0", "1.1", "1.1.0", "1.1.1"}
	if len(paths) != len(want) {
		t.Fatalf("got %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}
