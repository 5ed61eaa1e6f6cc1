package companion

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// KeywordEntry pairs a label with the substrings that signal it.
type KeywordEntry[K ~string] struct {
	Key      K        `yaml:"key"`
	Keywords []string `yaml:"keywords"`
}

// Dictionary is an ordered keyword table. Order is the tie-break priority:
// when two labels match equally often, the one listed first wins.
type Dictionary[K ~string] []KeywordEntry[K]

// Dictionaries holds the process-wide keyword tables. They are read-only after load.
type Dictionaries struct {
	Emotions Dictionary[Emotion]    `yaml:"emotions"`
	Grief    Dictionary[GriefStage] `yaml:"grief"`
}

// DefaultEmotionDictionary is declared in tie-break order. Neutral is never scored.
var DefaultEmotionDictionary = Dictionary[Emotion]{
	{Happy, []string{"행복", "좋아", "기뻐", "기쁘", "즐거", "웃겨", "ㅎㅎ", "ㅋㅋ", "happy", "glad"}},
	{Sad, []string{"슬퍼", "슬프", "우울", "눈물", "울고", "울었", "보고싶", "그리워", "속상", "sad"}},
	{Anxious, []string{"걱정", "불안", "무서", "두려", "긴장", "초조", "어떡하지", "worried", "anxious", "scared"}},
	{Angry, []string{"화나", "화가", "짜증", "열받", "빡쳐", "미워", "angry", "mad"}},
	{Grateful, []string{"고마워", "고맙", "감사", "덕분", "thank", "grateful"}},
	{Lonely, []string{"외로", "혼자", "쓸쓸", "허전", "보고싶", "그리워", "lonely", "alone"}},
	{Peaceful, []string{"편안", "평화", "차분", "여유", "잔잔", "포근", "peaceful", "calm"}},
	{Excited, []string{"신나", "설레", "기대돼", "두근", "대박", "최고", "excited", "yay"}},
}

// DefaultGriefDictionary is declared in tie-break order. Unknown is never scored.
var DefaultGriefDictionary = Dictionary[GriefStage]{
	{Denial, []string{"믿기지않", "믿을수없", "거짓말", "실감이안", "꿈같", "돌아올것같", "아직도옆에", "can'tbelieve"}},
	{Anger, []string{"왜하필", "화가나", "원망", "억울", "불공평", "용서못", "unfair"}},
	{Bargaining, []string{"했더라면", "했었더라면", "내가조금만", "내탓", "다시돌아간다면", "한번만더", "ifonly"}},
	{Depression, []string{"아무것도하기싫", "의미없", "살기싫", "공허", "무기력", "텅빈", "못견디", "empty"}},
	{Acceptance, []string{"고마웠", "행복했", "덕분에", "추억", "기억할게", "편히쉬", "무지개다리", "잘지내"}},
}

// DefaultDictionaries returns the compiled-in keyword tables.
func DefaultDictionaries() Dictionaries {
	return Dictionaries{Emotions: DefaultEmotionDictionary, Grief: DefaultGriefDictionary}
}

// LoadDictionaries reads keyword tables from a YAML file. A missing section keeps
// its default. Entry order in the file becomes the tie-break order.
func LoadDictionaries(path string) (Dictionaries, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Dictionaries{}, fmt.Errorf("read keyword dictionary: %w", err)
	}
	var d Dictionaries
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Dictionaries{}, fmt.Errorf("parse keyword dictionary %s: %w", path, err)
	}
	if len(d.Emotions) == 0 {
		d.Emotions = DefaultEmotionDictionary
	}
	if len(d.Grief) == 0 {
		d.Grief = DefaultGriefDictionary
	}
	if d.Emotions, err = normalizeDictionary(d.Emotions, func(e Emotion) bool { return e.Valid() && e != Neutral }); err != nil {
		return Dictionaries{}, fmt.Errorf("emotions: %w", err)
	}
	if d.Grief, err = normalizeDictionary(d.Grief, func(g GriefStage) bool { return g.Valid() && g != UnknownStage }); err != nil {
		return Dictionaries{}, fmt.Errorf("grief: %w", err)
	}
	return d, nil
}

func normalizeDictionary[K ~string](d Dictionary[K], valid func(K) bool) (Dictionary[K], error) {
	seen := make(map[K]bool, len(d))
	out := make(Dictionary[K], 0, len(d))
	for _, e := range d {
		if !valid(e.Key) {
			return nil, fmt.Errorf("unknown or unscorable key %q", e.Key)
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("duplicate key %q", e.Key)
		}
		seen[e.Key] = true
		kws := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			if kw = normalizeText(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("key %q has no keywords", e.Key)
		}
		out = append(out, KeywordEntry[K]{Key: e.Key, Keywords: kws})
	}
	return out, nil
}

// normalizeText lower-cases s and removes every whitespace rune.
func normalizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
