package ui

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle          = "app_title"
	KeyFile              = "file"
	KeySettings          = "settings"
	KeyLanguage          = "language"
	KeySave              = "save"
	KeyCancel            = "cancel"
	KeyBrowse            = "browse"
	KeyVideoFile         = "video_file"
	KeySelectVideo       = "select_video"
	KeyUpload            = "upload"
	KeyStartProcessing   = "start_processing"
	KeyStopProcessing    = "stop_processing"
	KeyRefreshCounts     = "refresh_counts"
	KeyResetCounts       = "reset_counts"
	KeyExportResults     = "export_results"
	KeyImport            = "import"
	KeyEnterURL          = "enter_url"
	KeyPleaseEnterURL    = "please_enter_url"
	KeyInvalidURL        = "invalid_url"
	KeyCorrect           = "correct"
	KeyIncorrect         = "incorrect"
	KeyTotal             = "total"
	KeyAccuracy          = "accuracy"
	KeyAngle             = "angle"
	KeyFeedback          = "feedback"
	KeyProgress          = "progress"
	KeyDebug             = "debug"
	KeyDebugState        = "debug_state"
	KeyMissingKeypoints  = "missing_keypoints"
	KeyFinalResults      = "final_results"
	KeyServerURL         = "server_url"
	KeyMaxUploadMB       = "max_upload_mb"
	KeyRequestTimeout    = "request_timeout"
	KeyShowDebug         = "show_debug"
	KeyImportDirectory   = "import_directory"
	KeySettingsSaved     = "settings_saved"
	KeyUploading         = "uploading"
	KeyImporting         = "importing"
	KeyImportCompleted   = "import_completed"
	KeyImportFailed      = "import_failed"
	KeyShrinkPrompt      = "shrink_prompt"
	KeyShrinkTitle       = "shrink_title"
	KeyShrinking         = "shrinking"
	KeyShrinkCompleted   = "shrink_completed"
	KeyShrinkFailed      = "shrink_failed"
	KeyShrinkUnavailable = "shrink_unavailable"
	KeyError             = "error"
	KeyExported          = "exported"
	KeyReveal            = "reveal"
	KeyJobCancelled      = "job_cancelled"
	KeyAnalysisCompleted = "analysis_completed"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		// Use system locale - simplified to English for now
		lang = "en"
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	return key
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ru": "Русский",
		"pt": "Português",
	}
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:          "RepCount",
		KeyFile:              "File",
		KeySettings:          "Settings",
		KeyLanguage:          "Language",
		KeySave:              "Save",
		KeyCancel:            "Cancel",
		KeyBrowse:            "Browse",
		KeyVideoFile:         "Video file",
		KeySelectVideo:       "Select a sit-up video...",
		KeyUpload:            "Upload",
		KeyStartProcessing:   "Start Processing",
		KeyStopProcessing:    "Stop",
		KeyRefreshCounts:     "Refresh Counts",
		KeyResetCounts:       "Reset Counts",
		KeyExportResults:     "Export Results",
		KeyImport:            "Import",
		KeyEnterURL:          "Or import from a URL (https://...)",
		KeyPleaseEnterURL:    "Please enter a URL",
		KeyInvalidURL:        "Invalid URL",
		KeyCorrect:           "Correct",
		KeyIncorrect:         "Incorrect",
		KeyTotal:             "Total",
		KeyAccuracy:          "Accuracy",
		KeyAngle:             "Torso angle",
		KeyFeedback:          "Feedback",
		KeyProgress:          "Progress",
		KeyDebug:             "Debug",
		KeyDebugState:        "State",
		KeyMissingKeypoints:  "Missing keypoints",
		KeyFinalResults:      "Final Results",
		KeyServerURL:         "Server URL",
		KeyMaxUploadMB:       "Upload limit (MB)",
		KeyRequestTimeout:    "Request timeout (s)",
		KeyShowDebug:         "Show debug panel",
		KeyImportDirectory:   "Import directory",
		KeySettingsSaved:     "Settings saved successfully!",
		KeyUploading:         "Uploading video...",
		KeyImporting:         "Importing video",
		KeyImportCompleted:   "Video imported",
		KeyImportFailed:      "Import failed",
		KeyShrinkPrompt:      "The video is larger than the upload limit. Shrink it with ffmpeg first?",
		KeyShrinkTitle:       "Video too large",
		KeyShrinking:         "Shrinking video",
		KeyShrinkCompleted:   "Video shrunk, ready to upload",
		KeyShrinkFailed:      "Shrink failed",
		KeyShrinkUnavailable: "The video is larger than the upload limit and ffmpeg was not found.",
		KeyError:             "Error",
		KeyExported:          "Results exported",
		KeyReveal:            "Reveal",
		KeyJobCancelled:      "Cancelled",
		KeyAnalysisCompleted: "Analysis completed",
	}

	l.texts["ru"] = map[string]string{
		KeyAppTitle:          "RepCount",
		KeyFile:              "Файл",
		KeySettings:          "Настройки",
		KeyLanguage:          "Язык",
		KeySave:              "Сохранить",
		KeyCancel:            "Отмена",
		KeyBrowse:            "Обзор",
		KeyVideoFile:         "Видеофайл",
		KeySelectVideo:       "Выберите видео с упражнением...",
		KeyUpload:            "Загрузить",
		KeyStartProcessing:   "Начать анализ",
		KeyStopProcessing:    "Стоп",
		KeyRefreshCounts:     "Обновить счёт",
		KeyResetCounts:       "Сбросить счёт",
		KeyExportResults:     "Экспорт результатов",
		KeyImport:            "Импорт",
		KeyEnterURL:          "Или импортируйте по ссылке (https://...)",
		KeyPleaseEnterURL:    "Пожалуйста, введите URL",
		KeyInvalidURL:        "Неверный URL",
		KeyCorrect:           "Верно",
		KeyIncorrect:         "Неверно",
		KeyTotal:             "Всего",
		KeyAccuracy:          "Точность",
		KeyAngle:             "Угол корпуса",
		KeyFeedback:          "Подсказка",
		KeyProgress:          "Прогресс",
		KeyDebug:             "Отладка",
		KeyDebugState:        "Состояние",
		KeyMissingKeypoints:  "Нет ключевых точек",
		KeyFinalResults:      "Итоги",
		KeyServerURL:         "Адрес сервера",
		KeyMaxUploadMB:       "Лимит загрузки (МБ)",
		KeyRequestTimeout:    "Таймаут запроса (с)",
		KeyShowDebug:         "Показывать отладку",
		KeyImportDirectory:   "Папка импорта",
		KeySettingsSaved:     "Настройки успешно сохранены!",
		KeyUploading:         "Загрузка видео...",
		KeyImporting:         "Импорт видео",
		KeyImportCompleted:   "Видео импортировано",
		KeyImportFailed:      "Ошибка импорта",
		KeyShrinkPrompt:      "Видео больше лимита загрузки. Сжать его с помощью ffmpeg?",
		KeyShrinkTitle:       "Слишком большое видео",
		KeyShrinking:         "Сжатие видео",
		KeyShrinkCompleted:   "Видео сжато и готово к загрузке",
		KeyShrinkFailed:      "Ошибка сжатия",
		KeyShrinkUnavailable: "Видео больше лимита загрузки, а ffmpeg не найден.",
		KeyError:             "Ошибка",
		KeyExported:          "Результаты экспортированы",
		KeyReveal:            "Показать",
		KeyJobCancelled:      "Отменено",
		KeyAnalysisCompleted: "Анализ завершён",
	}

	l.texts["pt"] = map[string]string{
		KeyAppTitle:          "RepCount",
		KeyFile:              "Arquivo",
		KeySettings:          "Configurações",
		KeyLanguage:          "Idioma",
		KeySave:              "Salvar",
		KeyCancel:            "Cancelar",
		KeyBrowse:            "Navegar",
		KeyVideoFile:         "Arquivo de vídeo",
		KeySelectVideo:       "Selecione um vídeo de abdominais...",
		KeyUpload:            "Enviar",
		KeyStartProcessing:   "Iniciar análise",
		KeyStopProcessing:    "Parar",
		KeyRefreshCounts:     "Atualizar contagem",
		KeyResetCounts:       "Zerar contagem",
		KeyExportResults:     "Exportar resultados",
		KeyImport:            "Importar",
		KeyEnterURL:          "Ou importe de uma URL (https://...)",
		KeyPleaseEnterURL:    "Por favor, digite uma URL",
		KeyInvalidURL:        "URL inválida",
		KeyCorrect:           "Corretos",
		KeyIncorrect:         "Incorretos",
		KeyTotal:             "Total",
		KeyAccuracy:          "Precisão",
		KeyAngle:             "Ângulo do tronco",
		KeyFeedback:          "Dica",
		KeyProgress:          "Progresso",
		KeyDebug:             "Depuração",
		KeyDebugState:        "Estado",
		KeyMissingKeypoints:  "Pontos ausentes",
		KeyFinalResults:      "Resultado final",
		KeyServerURL:         "URL do servidor",
		KeyMaxUploadMB:       "Limite de envio (MB)",
		KeyRequestTimeout:    "Tempo limite (s)",
		KeyShowDebug:         "Mostrar depuração",
		KeyImportDirectory:   "Diretório de importação",
		KeySettingsSaved:     "Configurações salvas com sucesso!",
		KeyUploading:         "Enviando vídeo...",
		KeyImporting:         "Importando vídeo",
		KeyImportCompleted:   "Vídeo importado",
		KeyImportFailed:      "Falha na importação",
		KeyShrinkPrompt:      "O vídeo excede o limite de envio. Reduzir com ffmpeg primeiro?",
		KeyShrinkTitle:       "Vídeo muito grande",
		KeyShrinking:         "Reduzindo vídeo",
		KeyShrinkCompleted:   "Vídeo reduzido, pronto para envio",
		KeyShrinkFailed:      "Falha ao reduzir",
		KeyShrinkUnavailable: "O vídeo excede o limite de envio e o ffmpeg não foi encontrado.",
		KeyError:             "Erro",
		KeyExported:          "Resultados exportados",
		KeyReveal:            "Mostrar",
		KeyJobCancelled:      "Cancelado",
		KeyAnalysisCompleted: "Análise concluída",
	}
}
