// Package prompts holds the provider prompt texts. Defaults live in the
// binary; a YAML file can override any of them per deployment.
package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds system roles and prompt templates. Templates are
// fmt.Sprintf patterns; the field comments name their arguments.
type Prompts struct {
	// TextSystemRole is the system role for analysis and rewriting.
	TextSystemRole string `yaml:"text_system_role"`
	// VideoSummaryPrompt guides the video-intelligence summary.
	VideoSummaryPrompt string `yaml:"video_summary_prompt"`
	// VideoBriefRole is the system role for video brief generation.
	VideoBriefRole string `yaml:"video_brief_role"`
	// AnalysisTemplate takes the post text.
	AnalysisTemplate string `yaml:"analysis_template"`
	// RewriteTemplate takes the tenant context and the post text.
	RewriteTemplate string `yaml:"rewrite_template"`
	// TranslateTemplate takes the text to translate.
	TranslateTemplate string `yaml:"translate_template"`
	// VideoBriefTemplate takes the tenant context and the transcription.
	VideoBriefTemplate string `yaml:"video_brief_template"`
}

// Defaults returns the built-in prompt set
func Defaults() *Prompts {
	return &Prompts{
		TextSystemRole: "Ты опытный SMM-редактор. Пишешь ясно, экспертно и по делу, " +
			"без воды и канцелярита, на русском языке.",
		VideoSummaryPrompt: "Describe the video in detail: what happens on screen, " +
			"what is said, the structure and the emotional tone. Include the full speech as a script.",
		VideoBriefRole: "Ты креативный директор, который адаптирует видео-контент под бренд компании.",
		AnalysisTemplate: `Проанализируй следующий Telegram-пост и ответь строго в JSON формате по полям:
- tema: тема поста (коротко)
- format: формат (текст / видео / карусель / опрос и т.п.)
- length: длина поста в символах
- style: серьёзный / юморной / экспертный / сторителлинг и т.п.
- cta: какой призыв к действию есть, или "нет", если есть, то явно указать
- zagolovok_5_slov: сгенерируй новый заголовок до 5 слов
- zagolovok_len: длина сгенерированного заголовка
- fact: есть ли научный факт или ссылка на исследование: да/нет
- benefit: есть ли конкретная польза или инструкция: да/нет
- comment_call: есть ли призыв прокомментировать: да/нет
- insight: краткий вывод, в чём сила поста
- filter: определи, является ли пост Личным или Профессиональным.
  ` + "`Личное`" + ` — посты о личных мероприятиях, вещах и событиях, не связанных с деятельностью компании.
  ` + "`Профессиональное`" + ` — посты, связанные с продуктами, услугами и экспертизой компании.
Текст поста:
"""%s"""`,
		RewriteTemplate: `Контекст: %s
Ниже популярный пост из Telegram:
"%s"
На основе этого поста и контекста создай уникальный Telegram-пост для нашей компании.
Сохрани идею и пользу, но полностью перепиши текст под стиль компании.
Не упоминай чужие бренды. Пиши ясно, экспертно и по делу. Объём — до 2049 символов с пробелами.`,
		TranslateTemplate: `Переведи текст на русский язык и пришли ТОЛЬКО переведенный текст.
"%s"`,
		VideoBriefTemplate: `Контекст компании: %s

Ниже описание и скрипт видео конкурента:
"%s"

На основе этого описания создай подробное предложение для съемки похожего видео для нашей компании.
Включи:
1. Адаптацию сценария под наш бренд и продукты
2. Конкретные технические требования к съемке
3. Рекомендации по локации и реквизиту
4. Предложения по тексту/речи
5. Идеи для визуальных эффектов или графики

Сохрани структуру и эмоциональное воздействие оригинала, но адаптируй под наш стиль и аудиторию.`,
	}
}

// Load reads prompt overrides from a YAML file. An empty path returns
// the defaults; fields missing from the file keep their default value.
func Load(path string) (*Prompts, error) {
	defaults := Defaults()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	merged := *defaults
	if overrides.TextSystemRole != "" {
		merged.TextSystemRole = overrides.TextSystemRole
	}
	if overrides.VideoSummaryPrompt != "" {
		merged.VideoSummaryPrompt = overrides.VideoSummaryPrompt
	}
	if overrides.VideoBriefRole != "" {
		merged.VideoBriefRole = overrides.VideoBriefRole
	}
	if overrides.AnalysisTemplate != "" {
		merged.AnalysisTemplate = overrides.AnalysisTemplate
	}
	if overrides.RewriteTemplate != "" {
		merged.RewriteTemplate = overrides.RewriteTemplate
	}
	if overrides.TranslateTemplate != "" {
		merged.TranslateTemplate = overrides.TranslateTemplate
	}
	if overrides.VideoBriefTemplate != "" {
		merged.VideoBriefTemplate = overrides.VideoBriefTemplate
	}

	return &merged, nil
}

// Analysis builds the structured-analysis prompt for a post
func (p *Prompts) Analysis(postText string) string {
	return fmt.Sprintf(p.AnalysisTemplate, postText)
}

// Rewrite builds the rebranding prompt for a post
func (p *Prompts) Rewrite(tenantContext, postText string) string {
	return fmt.Sprintf(p.RewriteTemplate, tenantContext, postText)
}

// Translate builds the translation prompt
func (p *Prompts) Translate(text string) string {
	return fmt.Sprintf(p.TranslateTemplate, text)
}

// VideoBrief builds the video production brief prompt
func (p *Prompts) VideoBrief(tenantContext, transcription string) string {
	return fmt.Sprintf(p.VideoBriefTemplate, tenantContext, transcription)
}
