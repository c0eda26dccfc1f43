package statute

import "testing"

func TestParseArticleRefs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []ArticleRef
	}{
		{
			name: "plain article",
			text: "민법 제618조에 따르면",
			want: []ArticleRef{{Jo: 618}},
		},
		{
			name: "article with clause",
			text: "제635조 제2항의 해지 통고",
			want: []ArticleRef{{Jo: 635, Hang: 2}},
		},
		{
			name: "article clause and item",
			text: "제10조 제1항 제3호",
			want: []ArticleRef{{Jo: 10, Hang: 1, Ho: 3}},
		},
		{
			name: "sub-article",
			text: "제312조의2에 의한 차임 증감",
			want: []ArticleRef{{Jo: 312, Sub: 2}},
		},
		{
			name: "multiple refs in order",
			text: "제618조와 제623조 제1항 참조",
			want: []ArticleRef{{Jo: 618}, {Jo: 623, Hang: 1}},
		},
		{
			name: "spaces inside the label",
			text: "제 618 조",
			want: []ArticleRef{{Jo: 618}},
		},
		{
			name: "no refs",
			text: "임대차 계약의 일반 원칙",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseArticleRefs(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d refs %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ref %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestArticleRefString(t *testing.T) {
	tests := []struct {
		ref  ArticleRef
		want string
	}{
		{ArticleRef{Jo: 618}, "제618조"},
		{ArticleRef{Jo: 635, Hang: 2}, "제635조 제2항"},
		{ArticleRef{Jo: 312, Sub: 2}, "제312조의2"},
		{ArticleRef{Jo: 10, Hang: 1, Ho: 3}, "제10조 제1항 제3호"},
	}
	for _, tt := range tests {
		if got := tt.ref.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestArticleRefArticleNumber(t *testing.T) {
	tests := []struct {
		ref  ArticleRef
		want string
	}{
		{ArticleRef{Jo: 618}, "제618조"},
		{ArticleRef{Jo: 312, Sub: 2}, "제312조의2"},
		{ArticleRef{Jo: 635, Hang: 2, Ho: 1}, "제635조"},
	}
	for _, tt := range tests {
		if got := tt.ref.ArticleNumber(); got != tt.want {
			t.Errorf("ArticleNumber() = %q, want %q", got, tt.want)
		}
	}
}

func TestArticleRef(t *testing.T) {
	a := Article{Code: "민법", Number: "제618조"}
	if got := a.Ref(); got != "민법 제618조" {
		t.Errorf("Ref() = %q", got)
	}
	b := Article{Number: "제5조"}
	if got := b.Ref(); got != "제5조" {
		t.Errorf("Ref() without code = %q", got)
	}
}
