package engine

import (
	"fmt"
	"strings"

	"github.com/spec-kit/intake-service/internal/domain"
)

// Callback payloads echoed back by the transport when a button is pressed.
// CallbackCategoryPrefix and CallbackDeletePrefix are followed by the category
// label / roster entry id respectively.
const (
	CallbackStartSubmission = "start_submission"
	CallbackSkipPhotos      = "skip_photos"
	CallbackFinishPhotos    = "finish_photos"
	CallbackSave            = "save_submission"
	CallbackRestart         = "restart"
	CallbackSendAnother     = "send_another"
	CallbackCancel          = "cancel"

	CallbackEmployeesMenu  = "employees_menu"
	CallbackAddEmployee    = "add_employee"
	CallbackListEmployees  = "list_employees"
	CallbackDeleteEmployee = "delete_employee"
	CallbackConfirmDelete  = "confirm_delete"
	CallbackCancelDelete   = "cancel_delete"
	CallbackBackToMain     = "back_to_main"

	CallbackCategoryPrefix = "category_"
	CallbackDeletePrefix   = "delete_emp_"
)

const (
	msgWelcomeAdmin = "👋 Добро пожаловать, администратор!\n\n" +
		"Вы можете управлять системой приёма замечаний от портных.\n" +
		"Выберите действие:"
	msgWelcomeEmployee = "Здесь вы можете отправить замечание или предложение " +
		"по работе с лекалами, техническими картами, материалами и другими вопросами.\n\n" +
		"Нажмите кнопку ниже, чтобы начать:"
	msgAccessDenied = "❌ Доступ запрещён!\n\n" +
		"У вас нет прав для использования этого бота."

	msgChooseCategory = "📋 Выберите категорию замечания:"
	msgUploadPhotos   = "📁 Загрузите фотографии (до %d) или пропустите этот шаг:"
	msgEnterComment   = "💬 Введите комментарий к замечанию:\n\n" +
		"Вы можете отправить текстовое сообщение или голосовое."
	msgSaved = "✅ Замечание успешно сохранено!\n\n" +
		"Спасибо за обратную связь. Ваше замечание будет рассмотрено."
	msgSavedPartially = "✅ Замечание сохранено в базу данных!\n" +
		"⚠️ Ошибка отправки в таблицу."
	msgSaveFailed = "❌ Ошибка сохранения замечания.\n\n" +
		"Попробуйте ещё раз или обратитесь к администратору."
	msgRosterEntryGone = "❌ Ваша учётная запись не найдена в списке сотрудников.\n" +
		"Обратитесь к администратору."
	msgVoiceFailed = "❌ Ошибка обработки голосового сообщения. Попробуйте отправить текст."
	msgNotACommand = "❓ Не понимаю команду.\n\nИспользуйте /start для начала работы с ботом."

	msgEmployeesMenu  = "👥 Управление сотрудниками\n\nВыберите действие:"
	msgAddEmployeeID  = "👤 Добавление нового сотрудника\n\nВведите Telegram ID сотрудника:"
	msgAddEmployeeBad = "❌ Неверный формат ID. Введите числовой ID:"
	msgAddEmployeeDup = "❌ Сотрудник с таким ID уже существует!"
	msgAddName        = "✅ ID принят!\n\nТеперь введите имя и фамилию сотрудника:"
	msgNameTooShort   = "❌ Имя слишком короткое. Введите полное имя:"
	msgEmployeeAdded  = "✅ Сотрудник успешно добавлен!\n\nТеперь он может пользоваться ботом."
	msgNoEmployees    = "📝 Список сотрудников пуст\n\nДобавьте сотрудников для начала работы."
	msgEmployeeGone   = "✅ Сотрудник успешно удален!"
	msgDeleteFailed   = "❌ Ошибка удаления сотрудника"
)

const (
	btnSendSubmission  = "📝 Отправить замечание"
	btnManageEmployees = "👥 Управление сотрудниками"
	btnAddEmployee     = "➕ Добавить сотрудника"
	btnListEmployees   = "📋 Список сотрудников"
	btnDeleteEmployee  = "🗑 Удалить сотрудника"
	btnBackToMain      = "⬅️ Главное меню"
	btnYesDelete       = "✅ Да, удалить"
	btnNoCancel        = "❌ Нет"
	btnSkipPhotos      = "➡️ Пропустить фото"
	btnNextToComment   = "➡️ Перейти к комментарию"
	btnSave            = "✅ Сохранить"
	btnRestart         = "🗑 Удалить и начать заново"
	btnSendAnother     = "📝 Отправить ещё замечание"
	btnCancel          = "❌ Отменить"
)

func row(label, data string) []Option {
	return []Option{{Label: label, Data: data}}
}

func mainMenuPrompt(role domain.Role) Prompt {
	if role == domain.RoleAdministrator {
		return Prompt{
			Text: msgWelcomeAdmin,
			Options: [][]Option{
				row(btnSendSubmission, CallbackStartSubmission),
				row(btnManageEmployees, CallbackEmployeesMenu),
			},
		}
	}
	return Prompt{
		Text:    msgWelcomeEmployee,
		Options: [][]Option{row(btnSendSubmission, CallbackStartSubmission)},
	}
}

func accessDeniedPrompt() Prompt {
	return Prompt{Text: msgAccessDenied}
}

func categoriesPrompt() Prompt {
	var rows [][]Option
	for _, c := range domain.Categories() {
		rows = append(rows, row(string(c), CallbackCategoryPrefix+string(c)))
	}
	rows = append(rows, row(btnCancel, CallbackCancel))
	return Prompt{Text: msgChooseCategory, Options: rows}
}

func photosPrompt(session *Session, maxPhotos int) Prompt {
	count := len(session.Photos)
	var text string
	var rows [][]Option
	switch {
	case count == 0:
		text = fmt.Sprintf("✅ Категория: %s\n✅ Мастер: %s\n\n", session.Category, session.MasterName) +
			fmt.Sprintf(msgUploadPhotos, maxPhotos)
		rows = append(rows, row(btnSkipPhotos, CallbackSkipPhotos))
	default:
		text = fmt.Sprintf("✅ Фото %d/%d загружено\n\nЗагрузите ещё фото или перейдите к комментарию:", count, maxPhotos)
		rows = append(rows, row(btnNextToComment, CallbackFinishPhotos))
	}
	rows = append(rows, row(btnCancel, CallbackCancel))
	return Prompt{Text: text, Options: rows}
}

func photoLimitPrompt(maxPhotos int) Prompt {
	return Prompt{
		Text: fmt.Sprintf("❌ Максимум %d фотографии", maxPhotos),
		Options: [][]Option{
			row(btnNextToComment, CallbackFinishPhotos),
			row(btnCancel, CallbackCancel),
		},
	}
}

func commentPrompt() Prompt {
	return Prompt{Text: msgEnterComment, Options: [][]Option{row(btnCancel, CallbackCancel)}}
}

func previewPrompt(session *Session) Prompt {
	var photosLine string
	if len(session.Photos) > 0 {
		photosLine = fmt.Sprintf("\n📷 Фотографий: %d", len(session.Photos))
	}
	text := "📋 Предварительный просмотр замечания:\n\n" +
		fmt.Sprintf("📂 Категория: %s\n", session.Category) +
		fmt.Sprintf("👤 Мастер: %s\n", session.MasterName) +
		fmt.Sprintf("💬 Комментарий: %s", session.Comment) +
		photosLine + "\n\nСохранить замечание?"
	return Prompt{
		Text: text,
		Options: [][]Option{
			row(btnSave, CallbackSave),
			row(btnRestart, CallbackRestart),
			row(btnCancel, CallbackCancel),
		},
	}
}

func savedPrompt(text string) Prompt {
	return Prompt{Text: text, Options: [][]Option{row(btnSendAnother, CallbackSendAnother)}}
}

func employeesMenuPrompt() Prompt {
	return Prompt{
		Text: msgEmployeesMenu,
		Options: [][]Option{
			row(btnAddEmployee, CallbackAddEmployee),
			row(btnListEmployees, CallbackListEmployees),
			row(btnDeleteEmployee, CallbackDeleteEmployee),
			row(btnBackToMain, CallbackBackToMain),
		},
	}
}

func employeeListPrompt(entries []domain.RosterEntry) Prompt {
	if len(entries) == 0 {
		return Prompt{Text: msgNoEmployees, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}
	}
	var b strings.Builder
	b.WriteString("👥 Список сотрудников:\n\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "• %s - %d\n", entry.Name, entry.TelegramID)
	}
	return Prompt{Text: b.String(), Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}
}

func deleteTargetsPrompt(entries []domain.RosterEntry) Prompt {
	if len(entries) == 0 {
		return Prompt{Text: msgNoEmployees, Options: [][]Option{row(btnBackToMain, CallbackBackToMain)}}
	}
	var b strings.Builder
	b.WriteString("🗑 Выберите сотрудника для удаления:\n\n")
	var rows [][]Option
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entry.Name)
		rows = append(rows, row(fmt.Sprintf("%d", i+1), fmt.Sprintf("%s%d", CallbackDeletePrefix, entry.ID)))
	}
	rows = append(rows, row(btnBackToMain, CallbackBackToMain))
	return Prompt{Text: b.String(), Options: rows}
}

func confirmDeletePrompt(name string) Prompt {
	return Prompt{
		Text: fmt.Sprintf("❓ Точно ли вы хотите удалить сотрудника %s?", name),
		Options: [][]Option{
			row(btnYesDelete, CallbackConfirmDelete),
			row(btnNoCancel, CallbackCancelDelete),
		},
	}
}
